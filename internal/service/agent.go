package service

import (
	"context"
	"fmt"

	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

const agentRecentRuns = 10

// AgentServiceOptions groups dependencies for AgentService.
type AgentServiceOptions struct {
	Agents core.AgentRepository   // Required
	Runs   core.TestRunRepository // Required
}

// AgentService reads agent activity.
type AgentService struct {
	agents core.AgentRepository
	runs   core.TestRunRepository
}

// NewAgentService constructs a new AgentService.
func NewAgentService(opts AgentServiceOptions) *AgentService {
	if opts.Agents == nil {
		panic("AgentRepository is required")
	}
	if opts.Runs == nil {
		panic("TestRunRepository is required")
	}
	return &AgentService{agents: opts.Agents, runs: opts.Runs}
}

// List returns a page of agents.
func (s *AgentService) List(ctx context.Context, limit, offset int) ([]*model.Agent, error) {
	limit, offset = model.ClampPage(limit, offset)
	return s.agents.List(ctx, limit, offset)
}

// Get returns an agent with its most recent runs.
func (s *AgentService) Get(ctx context.Context, id string) (*model.AgentDetail, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	runs, err := s.runs.List(ctx, model.TestRunListOptions{Limit: agentRecentRuns, AgentID: &agent.ID})
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return &model.AgentDetail{Agent: agent, RecentRuns: runs}, nil
}
