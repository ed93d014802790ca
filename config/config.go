package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cashchain/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment           string   `toml:"Environment"`
	DataDir               string   `toml:"DataDir"`
	GenesisFile           string   `toml:"GenesisFile"`
	RPCAddress            string   `toml:"RPCAddress"`
	RPCReadHeaderTimeout  int      `toml:"RPCReadHeaderTimeout"` // seconds
	RPCReadTimeout        int      `toml:"RPCReadTimeout"`
	RPCWriteTimeout       int      `toml:"RPCWriteTimeout"`
	RPCIdleTimeout        int      `toml:"RPCIdleTimeout"`
	KeystorePath          string   `toml:"KeystorePath"`
	KeystorePassphraseEnv string   `toml:"KeystorePassphraseEnv"`
	KeyID                 string   `toml:"KeyID"`
	BlockInterval         Duration `toml:"BlockInterval"`
	LogLevel              string   `toml:"LogLevel"`
	LogFile               string   `toml:"LogFile"`

	Oracle    OracleConfig    `toml:"oracle"`
	Starport  StarportConfig  `toml:"starport"`
	Notary    NotaryConfig    `toml:"notary"`
	Archive   ArchiveConfig   `toml:"archive"`
	Auth      AuthConfig      `toml:"auth"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Telemetry TelemetryConfig `toml:"telemetry"`

	keystorePassphrase string
}

// Option customises how the configuration is loaded.
type Option func(*loadOptions)

type loadOptions struct {
	passphrase string
}

// WithKeystorePassphrase sets the passphrase used when a keystore has to be
// created. It overrides KeystorePassphraseEnv.
func WithKeystorePassphrase(passphrase string) Option {
	return func(o *loadOptions) { o.passphrase = passphrase }
}

// Load loads the configuration from the given path, creating a default file
// and validator keystore when none exist.
func Load(path string, opts ...Option) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options)
	} else if err != nil {
		return nil, err
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}
	cfg.keystorePassphrase = cfg.resolvePassphrase(options)

	cfg.normalize()
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KeystorePassphrase returns the passphrase protecting the validator keystore.
func (c *Config) KeystorePassphrase() string { return c.keystorePassphrase }

func (c *Config) resolvePassphrase(options loadOptions) string {
	if options.passphrase != "" {
		return options.passphrase
	}
	if env := strings.TrimSpace(c.KeystorePassphraseEnv); env != "" {
		return os.Getenv(env)
	}
	return ""
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, cfg.keystorePassphrase); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.KeystorePath != keystorePath {
		cfg.KeystorePath = keystorePath
		return persist(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string, options loadOptions) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.keystorePassphrase = cfg.resolvePassphrase(options)
	cfg.KeystorePath = defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(cfg.KeystorePath, key, cfg.keystorePassphrase); err != nil {
		return nil, err
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration of a local single-validator node.
func Default() *Config {
	cfg := &Config{
		Environment:           "local",
		DataDir:               "./cash-data",
		GenesisFile:           "genesis.json",
		RPCAddress:            ":8080",
		KeystorePassphraseEnv: "CASH_KEYSTORE_PASSPHRASE",
		KeyID:                 "validator",
		Auth: AuthConfig{
			JWTSecretEnv: "CASH_JWT_SECRET",
			Issuer:       "cashchain",
		},
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	c.Environment = strings.TrimSpace(c.Environment)
	if c.Environment == "" {
		c.Environment = "local"
	}
	if strings.TrimSpace(c.KeyID) == "" {
		c.KeyID = "validator"
	}
	if c.BlockInterval.Duration <= 0 {
		c.BlockInterval = Duration{6 * time.Second}
	}
	if c.RPCReadHeaderTimeout <= 0 {
		c.RPCReadHeaderTimeout = 5
	}
	if c.RPCReadTimeout <= 0 {
		c.RPCReadTimeout = 15
	}
	if c.RPCWriteTimeout <= 0 {
		c.RPCWriteTimeout = 15
	}
	if c.RPCIdleTimeout <= 0 {
		c.RPCIdleTimeout = 60
	}
	if c.Oracle.PollInterval.Duration <= 0 {
		c.Oracle.PollInterval = Duration{time.Minute}
	}
	if c.Oracle.HTTPTimeout.Duration <= 0 {
		c.Oracle.HTTPTimeout = Duration{2 * time.Second}
	}
	if c.Starport.PollInterval.Duration <= 0 {
		c.Starport.PollInterval = Duration{12 * time.Second}
	}
	if c.Starport.Confirmations == 0 {
		c.Starport.Confirmations = 12
	}
	if c.Notary.PollInterval.Duration <= 0 {
		c.Notary.PollInterval = Duration{6 * time.Second}
	}
	c.Archive.Driver = strings.ToLower(strings.TrimSpace(c.Archive.Driver))
	if c.RateLimit.TrxPerSecond <= 0 {
		c.RateLimit.TrxPerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// WorkerStorePath is the bbolt file shared by the offchain workers.
func (c *Config) WorkerStorePath() string {
	return filepath.Join(c.DataDir, "offchain.db")
}

// LedgerPath is the LevelDB directory holding ledger state.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger")
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "validator.keystore")
}
