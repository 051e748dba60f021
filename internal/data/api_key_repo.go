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

const apiKeyColumns = `id, name, prefix, key_hash, created_by, created_at, last_used_at`

// APIKeyRepo provides database operations for agent API keys.
type APIKeyRepo struct {
	DB *sql.DB
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(db *sql.DB) *APIKeyRepo {
	return &APIKeyRepo{DB: db}
}

// Create stores a new key record.
func (r *APIKeyRepo) Create(ctx context.Context, rec model.NewAPIKeyRecord) (*model.APIKey, error) {
	out, err := pgxutil.QueryOne[model.APIKey](ctx, r.DB, `
		INSERT INTO api_keys (name, prefix, key_hash, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apiKeyColumns,
		rec.Name, rec.Prefix, rec.KeyHash, rec.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("create api key: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// List returns all keys, newest first.
func (r *APIKeyRepo) List(ctx context.Context) ([]*model.APIKey, error) {
	out, err := pgxutil.QueryAll[model.APIKey](ctx, r.DB,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// GetByHash looks up a key by the SHA-256 of its secret.
func (r *APIKeyRepo) GetByHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	out, err := pgxutil.QueryOne[model.APIKey](ctx, r.DB,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
	if err != nil {
		return nil, mapErr(err, ErrAPIKeyNotFound)
	}
	return out, nil
}

// Delete removes a key. It reports false when no such key existed.
func (r *APIKeyRepo) Delete(ctx context.Context, id string) (bool, error) {
	n, err := pgxutil.Exec(ctx, r.DB, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete api key: %w", apperrors.MapDBError(err))
	}
	return n > 0, nil
}

// TouchLastUsed records when a key last authenticated a request.
func (r *APIKeyRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	if _, err := pgxutil.Exec(ctx, r.DB,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, at.UTC(), id); err != nil {
		return fmt.Errorf("touch api key: %w", apperrors.MapDBError(err))
	}
	return nil
}
