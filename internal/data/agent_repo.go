package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/data/pgxutil"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const agentColumns = `id, name, model, status, last_seen_at, created_at`

// AgentRepo provides database operations for agents.
type AgentRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAgentRepo creates a new AgentRepo with real time provider.
func NewAgentRepo(db *sql.DB) *AgentRepo {
	return &AgentRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewAgentRepoWithTimeProvider creates an AgentRepo with a custom time provider (useful for tests).
func NewAgentRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AgentRepo {
	return &AgentRepo{DB: db, timeProvider: tp}
}

// Register upserts an agent by name, bumping last_seen_at.
// An empty model keeps the previously stored one.
func (r *AgentRepo) Register(ctx context.Context, name, agentModel string) (*model.Agent, error) {
	now := r.timeProvider.Now().UTC()
	out, err := pgxutil.QueryOne[model.Agent](ctx, r.DB, `
		INSERT INTO agents (name, model, status, last_seen_at)
		VALUES ($1, $2, 'IDLE', $3)
		ON CONFLICT (name) DO UPDATE
		SET model = COALESCE(NULLIF(EXCLUDED.model, ''), agents.model),
		    last_seen_at = EXCLUDED.last_seen_at
		RETURNING `+agentColumns,
		name, agentModel, now,
	)
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByID retrieves an agent by ID.
func (r *AgentRepo) GetByID(ctx context.Context, id string) (*model.Agent, error) {
	out, err := pgxutil.QueryOne[model.Agent](ctx, r.DB,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err, ErrAgentNotFound)
	}
	return out, nil
}

// List retrieves agents, most recently seen first.
func (r *AgentRepo) List(ctx context.Context, limit, offset int) ([]*model.Agent, error) {
	limit, offset = model.ClampPage(limit, offset)
	out, err := pgxutil.QueryAll[model.Agent](ctx, r.DB, `
		SELECT `+agentColumns+` FROM agents
		ORDER BY last_seen_at DESC NULLS LAST, name ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// ListByStatus retrieves agents in the given status.
func (r *AgentRepo) ListByStatus(ctx context.Context, status model.AgentStatus, limit int) ([]*model.Agent, error) {
	limit, _ = model.ClampPage(limit, 0)
	out, err := pgxutil.QueryAll[model.Agent](ctx, r.DB, `
		SELECT `+agentColumns+` FROM agents
		WHERE status = $1
		ORDER BY last_seen_at DESC NULLS LAST
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list agents by status: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// SetStatus updates an agent's status and last_seen_at.
func (r *AgentRepo) SetStatus(ctx context.Context, id string, status model.AgentStatus) error {
	n, err := pgxutil.Exec(ctx, r.DB,
		`UPDATE agents SET status = $1, last_seen_at = $2 WHERE id = $3`,
		string(status), r.timeProvider.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set agent status: %w", apperrors.MapDBError(err))
	}
	if n == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// MarkStaleOffline flips agents whose last_seen_at is older than cutoff to OFFLINE.
func (r *AgentRepo) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := pgxutil.Exec(ctx, r.DB, `
		UPDATE agents SET status = 'OFFLINE'
		WHERE status <> 'OFFLINE'
		  AND (last_seen_at IS NULL OR last_seen_at < $1)`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark stale agents: %w", apperrors.MapDBError(err))
	}
	return n, nil
}
