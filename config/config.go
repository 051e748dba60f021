package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Sign-in modes, SSO and role mapping
//   - session.go: Session cookie signing
//   - database.go: Postgres, Redis and dashboard caching
//   - http.go: HTTP server configuration
//   - services.go: Service mode and agent reaper configuration
type AppConfig struct {
	// IsDev controls development mode behavior (template reloading, mock auth).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth    AuthConfig
	Session SessionConfig

	Postgres  DBConfig    `envPrefix:"DB_"`
	Redis     RedisConfig `envPrefix:"REDIS_"`
	Dashboard DashboardConfig

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services (http, agent-reaper).
	Services    string `env:"SERVICES" envDefault:"http,agent-reaper"`
	AgentReaper AgentReaperConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Session.Sanitize()
	c.Dashboard.Sanitize()
	c.HTTP.Sanitize()
	c.AgentReaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// Validate reports configuration that must stop startup.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Session.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock is only allowed with DEV=true"))
	}
	if _, err := c.GetEnabledServices(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsAgentReaperEnabled returns true if the agent reaper service is enabled.
func (c *AppConfig) IsAgentReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeAgentReaper]
}
