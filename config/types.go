package config

import (
	"fmt"
	"time"
)

// Duration decodes TOML strings such as "30s" and encodes back to the same
// form.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// OracleConfig drives the open price feed poller. An empty PriceFeedURL
// disables it.
type OracleConfig struct {
	PriceFeedURL string   `toml:"PriceFeedURL"`
	PollInterval Duration `toml:"PollInterval"`
	HTTPTimeout  Duration `toml:"HTTPTimeout"`
}

// StarportConfig drives the Ethereum starport watcher. An empty RPCURL
// disables it; an empty Address falls back to the genesis starport.
type StarportConfig struct {
	RPCURL        string   `toml:"RPCURL"`
	Address       string   `toml:"Address"`
	StartBlock    uint64   `toml:"StartBlock"`
	Confirmations uint64   `toml:"Confirmations"`
	PollInterval  Duration `toml:"PollInterval"`
}

// NotaryConfig drives the notice signer.
type NotaryConfig struct {
	Disabled     bool     `toml:"Disabled"`
	PollInterval Duration `toml:"PollInterval"`
}

// ArchiveConfig selects the event archive database. An empty Driver disables
// archiving.
type ArchiveConfig struct {
	Driver string `toml:"Driver"` // sqlite or postgres
	DSN    string `toml:"DSN"`
}

// AuthConfig protects the governance endpoints.
type AuthConfig struct {
	JWTSecretEnv string `toml:"JWTSecretEnv"`
	Issuer       string `toml:"Issuer"`
	Audience     string `toml:"Audience"`
}

// RateLimitConfig bounds transaction submissions per client.
type RateLimitConfig struct {
	TrxPerSecond float64 `toml:"TrxPerSecond"`
	Burst        int     `toml:"Burst"`
}

// TelemetryConfig overrides the OTEL_EXPORTER_OTLP_* environment.
type TelemetryConfig struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	NodeID   string `toml:"NodeID"`
}
