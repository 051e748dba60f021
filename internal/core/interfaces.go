package core

import (
	"context"
	"time"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Services depend on these interfaces; internal/data provides the implementations.
// Lookups of absent records return an error for which apperrors.IsNotFound is true.

// UserRepository defines the interface for dashboard account storage.
type UserRepository interface {
	Create(ctx context.Context, u model.NewUser) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	UpdateRole(ctx context.Context, id string, role domainauth.Role) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// AgentRepository defines the interface for agent storage.
type AgentRepository interface {
	// Register creates the agent on first contact or refreshes model and last_seen_at.
	Register(ctx context.Context, name, agentModel string) (*model.Agent, error)
	GetByID(ctx context.Context, id string) (*model.Agent, error)
	List(ctx context.Context, limit, offset int) ([]*model.Agent, error)
	ListByStatus(ctx context.Context, status model.AgentStatus, limit int) ([]*model.Agent, error)
	SetStatus(ctx context.Context, id string, status model.AgentStatus) error
	// MarkStaleOffline sets OFFLINE on agents not seen since cutoff and returns how many changed.
	MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

// TestRunRepository defines the interface for test run storage.
type TestRunRepository interface {
	Create(ctx context.Context, agentID string, req *model.IngestTestRunRequest) (*model.TestRun, error)
	GetByID(ctx context.Context, id string) (*model.TestRun, error)
	List(ctx context.Context, opts model.TestRunListOptions) ([]*model.TestRun, error)
	Update(ctx context.Context, id string, req *model.UpdateTestRunRequest) (*model.TestRun, error)
}

// APIKeyRepository defines the interface for agent API key storage.
type APIKeyRepository interface {
	Create(ctx context.Context, rec model.NewAPIKeyRecord) (*model.APIKey, error)
	List(ctx context.Context) ([]*model.APIKey, error)
	GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	Delete(ctx context.Context, id string) (bool, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
