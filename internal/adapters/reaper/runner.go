// Package reaper runs the stale-agent sweep as a standalone service mode.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentqa/qa-dashboard/config"
	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/data"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
	"github.com/agentqa/qa-dashboard/internal/service"
)

// Runner wires the agent reaper to Postgres and runs its loop.
type Runner struct {
	reaper *service.AgentReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.AgentReaperConfig
	Logger *slog.Logger

	// Agents overrides the Postgres repository, mainly for tests.
	Agents  core.AgentRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.Agents == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	agents := opts.Agents
	if agents == nil {
		agents = data.NewAgentRepo(opts.DB)
	}

	svc, err := service.NewAgentReaperService(service.AgentReaperServiceOptions{
		Agents:  agents,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("wire agent reaper: %w", err)
	}
	return &Runner{reaper: svc, logger: opts.Logger}, nil
}

// Run starts the sweep loop and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting agent reaper runner")
	return r.reaper.Run(ctx)
}
