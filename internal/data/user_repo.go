package data

import (
	"context"
	"database/sql"
	"fmt"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/data/pgxutil"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

// UserRepo provides database operations for dashboard accounts.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// Create inserts a new user. A duplicate email returns ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u model.NewUser) (*model.User, error) {
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role),
	)
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", mapped)
	}
	return out, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err, ErrUserNotFound)
	}
	return out, nil
}

// GetByEmail retrieves a user by (case-insensitive) email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, model.NormalizeEmail(email))
	if err != nil {
		return nil, mapErr(err, ErrUserNotFound)
	}
	return out, nil
}

// List retrieves users ordered by name.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	limit, offset = model.ClampPage(limit, offset)
	out, err := pgxutil.QueryAll[model.User](ctx, r.DB,
		`SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// UpdateRole changes a user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) (*model.User, error) {
	out, err := pgxutil.QueryOne[model.User](ctx, r.DB, `
		UPDATE users SET role = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+userColumns,
		string(role), id,
	)
	if err != nil {
		return nil, mapErr(err, ErrUserNotFound)
	}
	return out, nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	n, err := pgxutil.Exec(ctx, r.DB,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", apperrors.MapDBError(err))
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
