package httpx

import (
	"context"

	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/service"
)

// AuthService is the sign-in surface used by the auth handlers.
type AuthService interface {
	SignIn(ctx context.Context, in service.SignInInput) (*service.SignInResult, error)
	SSOEnabled() bool
	BeginSSO(ctx context.Context, redirectURL string) (*service.BeginSSOResult, error)
	CompleteSSO(ctx context.Context, in service.CompleteSSOInput) (*service.SignInResult, error)
}

// APIKeyAuthenticator resolves bearer secrets on ingest routes.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, secret string) (*model.APIKey, error)
}

// APIKeyService manages agent API keys.
type APIKeyService interface {
	APIKeyAuthenticator
	List(ctx context.Context) ([]*model.APIKey, error)
	Create(ctx context.Context, req model.CreateAPIKeyRequest, createdBy string) (*model.CreatedAPIKey, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserService manages dashboard accounts.
type UserService interface {
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	UpdateRole(ctx context.Context, id string, req model.UpdateUserRoleRequest) (*model.User, error)
}

// AgentService reads agents.
type AgentService interface {
	List(ctx context.Context, limit, offset int) ([]*model.Agent, error)
	Get(ctx context.Context, id string) (*model.AgentDetail, error)
}

// TestRunService reads and records test runs.
type TestRunService interface {
	List(ctx context.Context, opts model.TestRunListOptions) ([]*model.TestRun, error)
	Get(ctx context.Context, id string) (*model.TestRun, error)
	Report(ctx context.Context, id, query string) (any, error)
	Ingest(ctx context.Context, req *model.IngestTestRunRequest) (*model.TestRun, error)
	Update(ctx context.Context, id string, req *model.UpdateTestRunRequest) (*model.TestRun, error)
}

// DashboardService builds the active-work snapshot.
type DashboardService interface {
	Active(ctx context.Context) (*model.ActiveSnapshot, error)
}

var (
	_ AuthService      = (*service.AuthService)(nil)
	_ APIKeyService    = (*service.APIKeyService)(nil)
	_ UserService      = (*service.UserService)(nil)
	_ AgentService     = (*service.AgentService)(nil)
	_ TestRunService   = (*service.TestRunService)(nil)
	_ DashboardService = (*service.DashboardService)(nil)
)
