package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

// TestRunServiceOptions groups dependencies for TestRunService.
type TestRunServiceOptions struct {
	Runs   core.TestRunRepository // Required
	Agents core.AgentRepository   // Required
	Logger *slog.Logger
}

// TestRunService reads runs for the dashboard and records runs reported by agents.
type TestRunService struct {
	runs   core.TestRunRepository
	agents core.AgentRepository
	logger *slog.Logger
}

// NewTestRunService constructs a new TestRunService.
func NewTestRunService(opts TestRunServiceOptions) *TestRunService {
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
	return &TestRunService{runs: opts.Runs, agents: opts.Agents, logger: logger}
}

// List returns runs matching opts, newest first.
func (s *TestRunService) List(ctx context.Context, opts model.TestRunListOptions) ([]*model.TestRun, error) {
	opts.Normalize()
	return s.runs.List(ctx, opts)
}

// Get returns one run.
func (s *TestRunService) Get(ctx context.Context, id string) (*model.TestRun, error) {
	return s.runs.GetByID(ctx, id)
}

// Report returns the run's report, optionally projected through a JMESPath query.
func (s *TestRunService) Report(ctx context.Context, id, query string) (any, error) {
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var doc any = map[string]any{}
	if len(run.Report) > 0 {
		if unmarshalErr := json.Unmarshal(run.Report, &doc); unmarshalErr != nil {
			return nil, fmt.Errorf("decode report: %w", unmarshalErr)
		}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return doc, nil
	}
	if _, compileErr := jmespath.Compile(query); compileErr != nil {
		return nil, apperrors.ValidationField("query", "invalid report query")
	}
	out, err := jmespath.Search(query, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "report query failed")
	}
	return out, nil
}

// Ingest records a run reported by an agent, registering the agent on first contact.
func (s *TestRunService) Ingest(ctx context.Context, req *model.IngestTestRunRequest) (*model.TestRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	agent, err := s.agents.Register(ctx, req.AgentName, req.AgentModel)
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", err)
	}

	run, err := s.runs.Create(ctx, agent.ID, req)
	if err != nil {
		return nil, fmt.Errorf("create test run: %w", err)
	}

	s.syncAgentStatus(ctx, agent, run.Status)
	return run, nil
}

// Update progresses a run reported earlier. Every update counts as contact
// from the agent, so its last_seen_at moves even when the status does not.
func (s *TestRunService) Update(ctx context.Context, id string, req *model.UpdateTestRunRequest) (*model.TestRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	run, err := s.runs.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.setAgentStatus(ctx, run.AgentID, agentStatusFor(run.Status))
	return run, nil
}

// syncAgentStatus mirrors the latest run state onto a freshly registered agent.
// Register already bumped last_seen_at, so an unchanged status needs no write.
func (s *TestRunService) syncAgentStatus(ctx context.Context, agent *model.Agent, runStatus model.TestRunStatus) {
	want := agentStatusFor(runStatus)
	if agent.Status == want {
		return
	}
	s.setAgentStatus(ctx, agent.ID, want)
}

// setAgentStatus writes status and last_seen_at. It is best-effort.
func (s *TestRunService) setAgentStatus(ctx context.Context, agentID string, status model.AgentStatus) {
	if err := s.agents.SetStatus(ctx, agentID, status); err != nil {
		s.logger.WarnContext(ctx, "set agent status", "agent_id", agentID, "error", err)
	}
}

func agentStatusFor(runStatus model.TestRunStatus) model.AgentStatus {
	if runStatus.Active() {
		return model.AgentStatusRunning
	}
	return model.AgentStatusIdle
}
