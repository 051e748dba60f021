package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/agentqa/qa-dashboard/config"
	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/observability/metrics"
	"github.com/agentqa/qa-dashboard/internal/observability/statsd"
)

// AgentReaperServiceOptions groups dependencies for AgentReaperService.
type AgentReaperServiceOptions struct {
	Agents  core.AgentRepository     // Required
	Config  config.AgentReaperConfig // Required
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// AgentReaperService periodically marks agents that stopped reporting as OFFLINE.
type AgentReaperService struct {
	agents  core.AgentRepository
	config  config.AgentReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewAgentReaperService constructs a new AgentReaperService.
func NewAgentReaperService(opts AgentReaperServiceOptions) (*AgentReaperService, error) {
	if opts.Agents == nil {
		return nil, errors.New("AgentRepository is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("agent reaper interval must be positive")
	}
	if opts.Config.OfflineAfter <= 0 {
		return nil, errors.New("agent offline threshold must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "agent_reaper")
	logger.Debug("AgentReaperService initialized",
		"interval", opts.Config.Interval,
		"offline_after", opts.Config.OfflineAfter,
	)
	return &AgentReaperService{
		agents:  opts.Agents,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// Run sweeps immediately (after a short jitter) and then on every interval
// until ctx is done. It returns nil on cancellation.
func (s *AgentReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting agent reaper", "interval", s.config.Interval)

	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.Sweep(ctx); err != nil {
		s.logSweepError(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "agent reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logSweepError(ctx, err)
			}
		}
	}
}

// Sweep marks every agent unseen for longer than OfflineAfter as OFFLINE.
func (s *AgentReaperService) Sweep(ctx context.Context) (int64, error) {
	start := s.now()
	cutoff := start.Add(-s.config.OfflineAfter)

	n, err := s.agents.MarkStaleOffline(ctx, cutoff)
	metrics.EmitAgentReap(s.metrics, n, time.Since(start), suppressContextCancellation(err))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "marked stale agents offline", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// waitWithJitter delays up to 10% of the interval so replicas do not sweep in lockstep.
func (s *AgentReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *AgentReaperService) logSweepError(ctx context.Context, err error) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, "agent sweep cancelled", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, "agent sweep failed", "error", err)
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
