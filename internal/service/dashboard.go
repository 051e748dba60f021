package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

const activeSnapshotCacheKey = "dashboard:active"

// DashboardConfig tunes the active snapshot.
type DashboardConfig struct {
	// CacheTTL is how long a snapshot is reused. Zero disables caching.
	CacheTTL time.Duration
	// Limit caps the runs and agents in a snapshot.
	Limit int
}

// DashboardServiceOptions groups dependencies for DashboardService.
type DashboardServiceOptions struct {
	Runs   core.TestRunRepository // Required
	Agents core.AgentRepository   // Required
	Cache  core.CacheRepository   // Optional
	Config DashboardConfig
	Logger *slog.Logger
}

// DashboardService builds the overview of in-flight work.
type DashboardService struct {
	runs   core.TestRunRepository
	agents core.AgentRepository
	cache  core.CacheRepository
	cfg    DashboardConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewDashboardService constructs a new DashboardService.
func NewDashboardService(opts DashboardServiceOptions) *DashboardService {
	if opts.Runs == nil {
		panic("TestRunRepository is required")
	}
	if opts.Agents == nil {
		panic("AgentRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Limit, _ = model.ClampPage(cfg.Limit, 0)
	return &DashboardService{
		runs:   opts.Runs,
		agents: opts.Agents,
		cache:  opts.Cache,
		cfg:    cfg,
		logger: logger.With("component", "dashboard_service"),
		now:    time.Now,
	}
}

// Active returns queued and running runs plus running agents. Cache
// failures are logged and bypassed.
func (s *DashboardService) Active(ctx context.Context) (*model.ActiveSnapshot, error) {
	if snap := s.cached(ctx); snap != nil {
		return snap, nil
	}

	snap := &model.ActiveSnapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runs, err := s.runs.List(gctx, model.TestRunListOptions{
			Limit:    s.cfg.Limit,
			Statuses: []model.TestRunStatus{model.TestRunStatusQueued, model.TestRunStatusRunning},
		})
		if err != nil {
			return fmt.Errorf("list active runs: %w", err)
		}
		snap.Runs = runs
		return nil
	})
	g.Go(func() error {
		agents, err := s.agents.ListByStatus(gctx, model.AgentStatusRunning, s.cfg.Limit)
		if err != nil {
			return fmt.Errorf("list running agents: %w", err)
		}
		snap.Agents = agents
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snap.Runs == nil {
		snap.Runs = []*model.TestRun{}
	}
	if snap.Agents == nil {
		snap.Agents = []*model.Agent{}
	}
	snap.GeneratedAt = s.now().UTC()
	s.store(ctx, snap)
	return snap, nil
}

func (s *DashboardService) cached(ctx context.Context) *model.ActiveSnapshot {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, activeSnapshotCacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read snapshot cache", "error", err)
		return nil
	}
	if raw == nil {
		return nil
	}
	var snap model.ActiveSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.WarnContext(ctx, "decode cached snapshot", "error", err)
		return nil
	}
	return &snap
}

func (s *DashboardService) store(ctx context.Context, snap *model.ActiveSnapshot) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		s.logger.WarnContext(ctx, "encode snapshot", "error", err)
		return
	}
	if err := s.cache.Set(ctx, activeSnapshotCacheKey, raw, s.cfg.CacheTTL); err != nil {
		s.logger.WarnContext(ctx, "write snapshot cache", "error", err)
	}
}
