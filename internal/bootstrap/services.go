package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/agentqa/qa-dashboard/config"
	"github.com/agentqa/qa-dashboard/internal/adapters/password"
	"github.com/agentqa/qa-dashboard/internal/adapters/reaper"
	"github.com/agentqa/qa-dashboard/internal/adapters/sessiontoken"
	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/data"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
	"github.com/agentqa/qa-dashboard/internal/service"
)

const dashboardCachePrefix = "qadash:cache:"

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth      *service.AuthService
	Sessions  *sessiontoken.Codec
	Hasher    *password.Argon2
	APIKeys   *service.APIKeyService
	Users     *service.UserService
	Agents    *service.AgentService
	TestRuns  *service.TestRunService
	Dashboard *service.DashboardService

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// MetricsSink is nil when metrics are disabled.
	MetricsSink   statsd.Sink
	MetricsConfig config.ObservabilityMetricsConfig
	client        *statsd.Client
}

// Close releases the StatsD socket, if any.
func (o ObservabilityContainer) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports; no business rules here.
type serviceRepositories struct {
	Users    core.UserRepository
	Agents   core.AgentRepository
	TestRuns core.TestRunRepository
	APIKeys  core.APIKeyRepository
	Cache    core.CacheRepository
}

func buildRepositories(db *sql.DB, client redis.UniversalClient) *serviceRepositories {
	repos := &serviceRepositories{
		Users:    data.NewUserRepo(db),
		Agents:   data.NewAgentRepo(db),
		TestRuns: data.NewTestRunRepo(db),
		APIKeys:  data.NewAPIKeyRepo(db),
	}
	if client != nil {
		repos.Cache = data.NewRedisCacheRepo(client, dashboardCachePrefix)
	}
	return repos
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return out
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return out
	}
	out.client = client
	out.MetricsSink = client
	return out
}

// NewServices builds the repositories, observability adapters and domain services.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient)

	auth, err := BuildAuth(ctx, AuthConfig{
		Auth:        cfg.Auth,
		Session:     cfg.Session,
		RedisClient: deps.RedisClient,
		Users:       repos.Users,
		Logger:      logger,
		Metrics:     observability.MetricsSink,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(err, observability.Close())
	}

	return ServiceContainer{
		Auth:     auth.Service,
		Sessions: auth.Sessions,
		Hasher:   auth.Hasher,
		APIKeys:  service.NewAPIKeyService(service.APIKeyServiceOptions{Repo: repos.APIKeys, Logger: logger}),
		Users: service.NewUserService(service.UserServiceOptions{
			Repo:   repos.Users,
			Hasher: auth.Hasher,
			Logger: logger,
		}),
		Agents: service.NewAgentService(service.AgentServiceOptions{Agents: repos.Agents, Runs: repos.TestRuns}),
		TestRuns: service.NewTestRunService(service.TestRunServiceOptions{
			Runs:   repos.TestRuns,
			Agents: repos.Agents,
			Logger: logger,
		}),
		Dashboard: service.NewDashboardService(service.DashboardServiceOptions{
			Runs:   repos.TestRuns,
			Agents: repos.Agents,
			Cache:  repos.Cache,
			Config: service.DashboardConfig{
				CacheTTL: cfg.Dashboard.CacheTTL,
				Limit:    cfg.Dashboard.ActiveLimit,
			},
			Logger: logger,
		}),
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// backgroundService describes a startable long-running component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

func newHTTPBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeHTTP,
		name: "http server",
		start: func(ctx context.Context) error {
			server := NewHTTPServer(&HTTPServerConfig{
				Config:   cfg.Config,
				Services: cfg.Services,
				Logger:   logger,
			})
			return ServeHTTP(ctx, server, logger)
		},
	}
}

func newAgentReaperBackgroundService(cfg *ServiceOrchestrationConfig, logger *slog.Logger) backgroundService {
	return backgroundService{
		mode: config.ServiceModeAgentReaper,
		name: "agent reaper",
		start: func(ctx context.Context) error {
			runner, err := reaper.NewRunner(reaper.RunnerOptions{
				DB:      cfg.DB,
				Config:  cfg.Config.AgentReaper,
				Logger:  logger,
				Metrics: cfg.Services.Observability.MetricsSink,
			})
			if err != nil {
				return fmt.Errorf("create agent reaper runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

// enabledBackgroundServices returns the services selected by SERVICES, in start order.
func enabledBackgroundServices(
	cfg *ServiceOrchestrationConfig,
	enabled map[config.ServiceMode]bool,
	logger *slog.Logger,
) []backgroundService {
	all := []backgroundService{
		newHTTPBackgroundService(cfg, logger),
		newAgentReaperBackgroundService(cfg, logger),
	}
	out := make([]backgroundService, 0, len(all))
	for _, svc := range all {
		if enabled[svc.mode] {
			out = append(out, svc)
		}
	}
	return out
}

// RunServicesWithShutdown starts all enabled services and blocks until
// SIGINT/SIGTERM or until one of them fails, then stops the rest.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range enabledBackgroundServices(cfg, enabled, logger) {
		logger.InfoContext(ctx, "service started", "service", svc.name, "mode", svc.mode)
		g.Go(func() error {
			if runErr := svc.start(gctx); runErr != nil {
				return fmt.Errorf("%s failed: %w", svc.name, runErr)
			}
			logger.Info(svc.name + " stopped")
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		logger.Error("service error", "error", err)
	}
	return err
}
