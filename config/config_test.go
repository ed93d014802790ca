package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cashchain/crypto"
)

const testKeystorePassphrase = "test-passphrase"

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path, WithKeystorePassphrase(testKeystorePassphrase))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RPCAddress != ":8080" || cfg.Environment != "local" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.KeystorePath != filepath.Join(dir, "validator.keystore") {
		t.Fatalf("unexpected keystore path: %s", cfg.KeystorePath)
	}
	if _, err := crypto.LoadFromKeystore(cfg.KeystorePath, testKeystorePassphrase); err != nil {
		t.Fatalf("load generated keystore: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be written: %v", err)
	}

	reloaded, err := Load(path, WithKeystorePassphrase(testKeystorePassphrase))
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if reloaded.Oracle.HTTPTimeout.Duration != 2*time.Second {
		t.Fatalf("unexpected oracle timeout after reload: %s", reloaded.Oracle.HTTPTimeout)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystorePath := filepath.Join(dir, "node.keystore")
	contents := fmt.Sprintf(`Environment = "staging"
DataDir = "./data"
GenesisFile = "genesis.json"
RPCAddress = "0.0.0.0:9000"
RPCReadTimeout = 20
KeystorePath = "%s"
KeyID = "val-1"

[oracle]
PriceFeedURL = "https://prices.example/coinbase"
PollInterval = "30s"
HTTPTimeout = "3s"

[starport]
RPCURL = "https://eth.example"
Address = "0xD905AbBa1C5Ea48c0598bE9F3F8ae31290B58613"
Confirmations = 20

[archive]
Driver = "SQLite"
DSN = "file:archive.db"

[rate_limit]
TrxPerSecond = 2.5
Burst = 4
`, keystorePath)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, WithKeystorePassphrase(testKeystorePassphrase))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Environment != "staging" || cfg.KeyID != "val-1" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Oracle.PollInterval.Duration != 30*time.Second || cfg.Oracle.HTTPTimeout.Duration != 3*time.Second {
		t.Fatalf("unexpected oracle durations: %+v", cfg.Oracle)
	}
	if cfg.Starport.Confirmations != 20 || cfg.Starport.PollInterval.Duration != 12*time.Second {
		t.Fatalf("unexpected starport config: %+v", cfg.Starport)
	}
	if cfg.Archive.Driver != "sqlite" {
		t.Fatalf("archive driver not normalised: %q", cfg.Archive.Driver)
	}
	if cfg.RateLimit.TrxPerSecond != 2.5 || cfg.RateLimit.Burst != 4 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	_, read, write, _ := cfg.RPCTimeouts()
	if read != 20*time.Second || write != 15*time.Second {
		t.Fatalf("unexpected rpc timeouts: read=%s write=%s", read, write)
	}
	if _, err := os.Stat(keystorePath); err != nil {
		t.Fatalf("expected keystore to be generated: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("ListenAddress = \":6001\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := Load(path, WithKeystorePassphrase(testKeystorePassphrase))
	if err == nil || !strings.Contains(err.Error(), "ListenAddress") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"ok":           {func(*Config) {}, ""},
		"no data dir":  {func(c *Config) { c.DataDir = "" }, "DataDir"},
		"bad feed url": {func(c *Config) { c.Oracle.PriceFeedURL = "prices" }, "PriceFeedURL"},
		"slow timeout": {func(c *Config) { c.Oracle.PriceFeedURL = "http://x"; c.Oracle.HTTPTimeout = Duration{2 * time.Minute} }, "HTTPTimeout"},
		"bad starport": {func(c *Config) { c.Starport.RPCURL = "http://eth"; c.Starport.Address = "0x12" }, "starport"},
		"bad driver":   {func(c *Config) { c.Archive.Driver = "mysql" }, "unsupported driver"},
		"missing dsn":  {func(c *Config) { c.Archive.Driver = "postgres" }, "DSN"},
		"zero burst":   {func(c *Config) { c.RateLimit.Burst = 0 }, "rate_limit"},
		"fast polling": {func(c *Config) {
			c.Oracle.PriceFeedURL = "http://x"
			c.Oracle.PollInterval = Duration{time.Millisecond}
		}, "PollInterval"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestJWTSecret(t *testing.T) {
	cfg := Default()
	t.Setenv(cfg.Auth.JWTSecretEnv, "")
	if _, err := cfg.JWTSecret(); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	t.Setenv(cfg.Auth.JWTSecretEnv, "s3cret")
	secret, err := cfg.JWTSecret()
	if err != nil || string(secret) != "s3cret" {
		t.Fatalf("unexpected secret %q err=%v", secret, err)
	}
}
