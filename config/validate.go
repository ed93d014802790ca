package config

import (
	"fmt"
	"net/url"
	"strings"

	"cashchain/crypto"
)

var (
	// MinOraclePollSeconds bounds how often the price feed may be polled.
	MinOraclePollSeconds = 1.0
)

// Validate rejects configurations the node cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	if c.Oracle.PriceFeedURL != "" {
		if _, err := url.ParseRequestURI(c.Oracle.PriceFeedURL); err != nil {
			return fmt.Errorf("oracle: invalid PriceFeedURL: %w", err)
		}
		if c.Oracle.PollInterval.Seconds() < MinOraclePollSeconds {
			return fmt.Errorf("oracle: PollInterval below %.0fs", MinOraclePollSeconds)
		}
		if c.Oracle.HTTPTimeout.Duration >= c.Oracle.PollInterval.Duration {
			return fmt.Errorf("oracle: HTTPTimeout must be shorter than PollInterval")
		}
	}
	if c.Starport.RPCURL != "" && strings.TrimSpace(c.Starport.Address) != "" {
		raw, err := crypto.EthDecodeHex(strings.ToLower(strings.TrimSpace(c.Starport.Address)))
		if err != nil || len(raw) != 20 {
			return fmt.Errorf("starport: invalid Address %q", c.Starport.Address)
		}
	}
	switch c.Archive.Driver {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Archive.DSN) == "" {
			return fmt.Errorf("archive: DSN required for driver %s", c.Archive.Driver)
		}
	default:
		return fmt.Errorf("archive: unsupported driver %q", c.Archive.Driver)
	}
	if c.RateLimit.TrxPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit: TrxPerSecond and Burst must be positive")
	}
	return nil
}
