package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// JWTSecret resolves the governance token secret from the environment.
func (c *Config) JWTSecret() ([]byte, error) {
	env := strings.TrimSpace(c.Auth.JWTSecretEnv)
	if env == "" {
		return nil, fmt.Errorf("auth: JWTSecretEnv not configured")
	}
	secret := os.Getenv(env)
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("auth: %s is empty", env)
	}
	return []byte(secret), nil
}

// RPCTimeouts returns the HTTP server timeouts.
func (c *Config) RPCTimeouts() (readHeader, read, write, idle time.Duration) {
	return time.Duration(c.RPCReadHeaderTimeout) * time.Second,
		time.Duration(c.RPCReadTimeout) * time.Second,
		time.Duration(c.RPCWriteTimeout) * time.Second,
		time.Duration(c.RPCIdleTimeout) * time.Second
}
