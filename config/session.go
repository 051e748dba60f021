package config

import (
	"fmt"
	"time"
)

const (
	minSessionSecretBytes = 32
	maxSessionLeeway      = 2 * time.Minute
)

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	// Secret signs session tokens. Changing it signs everyone out.
	Secret     string        `env:"SESSION_SECRET"`
	TTL        time.Duration `env:"SESSION_TTL"         envDefault:"720h"`
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"qadash_session"`
	Issuer     string        `env:"SESSION_ISSUER"      envDefault:"qa-dashboard"`
	// Leeway tolerates clock skew when checking iat and exp.
	Leeway time.Duration `env:"SESSION_LEEWAY" envDefault:"30s"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.TTL < time.Minute {
		s.TTL = time.Minute
	}
	if s.Leeway < 0 {
		s.Leeway = 0
	}
	if s.Leeway > maxSessionLeeway {
		s.Leeway = maxSessionLeeway
	}
	if s.CookieName == "" {
		s.CookieName = "qadash_session"
	}
	if s.Issuer == "" {
		s.Issuer = "qa-dashboard"
	}
}

// Validate checks that a usable signing secret is configured.
func (s *SessionConfig) Validate() error {
	if len(s.Secret) < minSessionSecretBytes {
		return fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretBytes)
	}
	return nil
}
