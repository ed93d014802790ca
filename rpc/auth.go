package rpc

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const scopeGovernance = "governance"

// AuthConfig verifies HS256 bearer tokens for governance methods.
type AuthConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

var (
	errAuthDisabled = errors.New("governance auth not configured")
	errMissingToken = errors.New("missing bearer token")
	errScope        = errors.New("insufficient scope")
)

// Authenticator checks governance tokens. A zero secret rejects every
// governance call.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

// NewAuthenticator builds an authenticator from cfg.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.Secret))}
}

// Authorize validates the request's bearer token and its scope claim.
func (a *Authenticator) Authorize(r *http.Request, scope string) error {
	if a == nil || len(a.secret) == 0 {
		return errAuthDisabled
	}
	tokenString := extractBearer(r.Header.Get("Authorization"))
	if tokenString == "" {
		return errMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("token invalid")
	}
	if !hasScope(claims, scope) {
		return errScope
	}
	return nil
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// hasScope accepts a space separated "scope" string or a "scopes" list.
func hasScope(claims jwt.MapClaims, want string) bool {
	if raw, ok := claims["scope"].(string); ok {
		for _, s := range strings.Fields(raw) {
			if s == want {
				return true
			}
		}
	}
	if list, ok := claims["scopes"].([]interface{}); ok {
		for _, entry := range list {
			if s, ok := entry.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}
