package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects how users sign in.
type AuthMode string

const (
	// AuthModeCredentials signs users in with email and password only.
	AuthModeCredentials AuthMode = "credentials"
	// AuthModeOAuth adds OAuth/OIDC sign-in alongside credentials.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock adds a fixed development identity (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch AuthMode(v) {
	case AuthModeCredentials, AuthModeOAuth, AuthModeMock:
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: credentials, oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/api/auth/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the mock identity used when AUTH_MODE=mock.
type DevAuthConfig struct {
	UserID string   `env:"USER_ID" envDefault:"dev-user"`
	Name   string   `env:"NAME"    envDefault:"Dev User"`
	Email  string   `env:"EMAIL"   envDefault:"dev@example.com"`
	Groups []string `env:"GROUPS"  envDefault:"qa-admins" envSeparator:";"`
}

// LoginThrottleConfig bounds failed credential sign-ins per account and client.
type LoginThrottleConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	Lockout     time.Duration `env:"LOGIN_LOCKOUT"      envDefault:"15m"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which sign-in methods are offered.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"credentials"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// Provider group names mapped to roles. Users in none of them are VIEWERs.
	AdminGroup   string `env:"ADMIN_GROUP"   envDefault:"qa-admins"`
	ManagerGroup string `env:"MANAGER_GROUP" envDefault:"qa-managers"`
	TesterGroup  string `env:"TESTER_GROUP"  envDefault:"qa-testers"`

	Throttle LoginThrottleConfig
}

// SSOEnabled reports whether a provider sign-in flow is configured.
func (a *AuthConfig) SSOEnabled() bool {
	return a.Mode == AuthModeOAuth || a.Mode == AuthModeMock
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.Throttle.MaxAttempts < 1 {
		a.Throttle.MaxAttempts = 1
	}
	if a.Throttle.Lockout < time.Minute {
		a.Throttle.Lockout = time.Minute
	}
}

// Validate reports settings that would make the selected mode unusable.
func (a *AuthConfig) Validate() error {
	if a.Mode != AuthModeOAuth {
		return nil
	}
	if a.OAuth.ClientID == "" || a.OAuth.DiscoveryURL == "" {
		return fmt.Errorf("AUTH_MODE=oauth requires OAUTH_CLIENT_ID and OAUTH_DISCOVERY_URL")
	}
	return nil
}
