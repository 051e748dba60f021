package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/agentqa/qa-dashboard/config"
	"github.com/agentqa/qa-dashboard/internal/adapters/authroles"
	"github.com/agentqa/qa-dashboard/internal/adapters/devauth"
	"github.com/agentqa/qa-dashboard/internal/adapters/oidc"
	"github.com/agentqa/qa-dashboard/internal/adapters/password"
	redisadapter "github.com/agentqa/qa-dashboard/internal/adapters/redis"
	"github.com/agentqa/qa-dashboard/internal/adapters/sessiontoken"
	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
	"github.com/agentqa/qa-dashboard/internal/ports"
	"github.com/agentqa/qa-dashboard/internal/service"
)

// AuthConfig contains configuration for the auth components.
type AuthConfig struct {
	Auth        config.AuthConfig
	Session     config.SessionConfig
	RedisClient redis.UniversalClient
	Users       core.UserRepository
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// AuthComponents are the auth pieces shared by the HTTP layer and the services.
type AuthComponents struct {
	Service  *service.AuthService
	Sessions *sessiontoken.Codec
	Hasher   *password.Argon2
}

// BuildAuth wires the session codec, password hasher, login throttle and the
// SSO provider selected by AUTH_MODE. A bad session secret is fatal; an SSO
// provider that cannot be built only disables SSO.
func BuildAuth(ctx context.Context, cfg AuthConfig) (*AuthComponents, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := sessiontoken.New(sessiontoken.Config{
		Secret: []byte(cfg.Session.Secret),
		Issuer: cfg.Session.Issuer,
		TTL:    cfg.Session.TTL,
		Leeway: cfg.Session.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	var limiter ports.LoginLimiter
	if cfg.RedisClient != nil {
		limiter = redisadapter.NewLoginLimiter(cfg.RedisClient, redisadapter.LoginLimiterConfig{
			MaxAttempts: cfg.Auth.Throttle.MaxAttempts,
			Lockout:     cfg.Auth.Throttle.Lockout,
		})
	} else {
		logger.Warn("login throttling disabled: redis client not configured")
	}

	svc := service.NewAuthService(service.AuthServiceOptions{
		Users:     cfg.Users,
		Sessions:  codec,
		Passwords: service.PasswordAuth{Hasher: hasher, Limiter: limiter},
		SSO: service.SSOAuth{
			Provider: buildSSOProvider(ctx, cfg.Auth, logger),
			Roles: authroles.StaticRoleMapper{
				AdminGroup:   cfg.Auth.AdminGroup,
				ManagerGroup: cfg.Auth.ManagerGroup,
				TesterGroup:  cfg.Auth.TesterGroup,
			},
		},
		Logger:  logger,
		Metrics: cfg.Metrics,
	})

	return &AuthComponents{Service: svc, Sessions: codec, Hasher: hasher}, nil
}

//nolint:ireturn // callers only need the port.
func buildSSOProvider(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) ports.AuthProvider {
	switch cfg.Mode {
	case config.AuthModeMock:
		prov, err := devauth.NewProvider(devauth.Config{
			Subject: cfg.DevAuth.UserID,
			Name:    cfg.DevAuth.Name,
			Email:   cfg.DevAuth.Email,
			Groups:  cfg.DevAuth.Groups,
		})
		if err != nil {
			logger.Warn("failed to create dev auth provider, SSO disabled", "error", err)
			return nil
		}
		logger.Warn("dev auth provider enabled; do not use in production", "email", cfg.DevAuth.Email)
		return prov

	case config.AuthModeOAuth:
		oauth := cfg.OAuth
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
		})
		if err != nil {
			logger.Warn("failed to create OIDC provider, SSO disabled",
				"error", err,
				"discovery_url_empty", oauth.DiscoveryURL == "",
				"client_secret_empty", oauth.ClientSecret == "",
			)
			return nil
		}
		return prov

	default:
		return nil
	}
}
