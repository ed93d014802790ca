package oracled

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the runtime configuration of the stand-alone poller.
type Config struct {
	FeedURL      string   `yaml:"feed_url"`
	NodeURL      string   `yaml:"node_url"`
	StorePath    string   `yaml:"store"`
	PollInterval Duration `yaml:"poll_interval"`
	HTTPTimeout  Duration `yaml:"http_timeout"`
	Environment  string   `yaml:"environment"`
	MetricsAddr  string   `yaml:"metrics_listen"`
}

// LoadConfig reads configuration from the supplied path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.FeedURL = strings.TrimSpace(c.FeedURL)
	c.NodeURL = strings.TrimRight(strings.TrimSpace(c.NodeURL), "/")
	if c.StorePath == "" {
		c.StorePath = "oracled.db"
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval.Duration = time.Minute
	}
	if c.HTTPTimeout.Duration == 0 {
		c.HTTPTimeout.Duration = 2 * time.Second
	}
	if c.Environment == "" {
		c.Environment = "local"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9102"
	}
}

func (c Config) validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("feed_url must be configured")
	}
	if _, err := url.ParseRequestURI(c.FeedURL); err != nil {
		return fmt.Errorf("feed_url: %w", err)
	}
	if c.NodeURL == "" {
		return fmt.Errorf("node_url must be configured")
	}
	if _, err := url.ParseRequestURI(c.NodeURL); err != nil {
		return fmt.Errorf("node_url: %w", err)
	}
	if c.HTTPTimeout.Duration >= c.PollInterval.Duration {
		return fmt.Errorf("http_timeout must be shorter than poll_interval")
	}
	return nil
}
