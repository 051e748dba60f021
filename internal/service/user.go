package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentqa/qa-dashboard/internal/core"
	"github.com/agentqa/qa-dashboard/internal/domain/model"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Repo   core.UserRepository  // Required
	Hasher ports.PasswordHasher // Required when creating users with a password
	Logger *slog.Logger
}

// UserService manages dashboard accounts and their roles.
type UserService struct {
	repo   core.UserRepository
	hasher ports.PasswordHasher
	logger *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	if opts.Repo == nil {
		panic("UserRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{repo: opts.Repo, hasher: opts.Hasher, logger: logger}
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	limit, offset = model.ClampPage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

// GetByEmail looks a user up by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.repo.GetByEmail(ctx, model.NormalizeEmail(email))
}

// Create provisions an account, hashing the password when one is given.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	nu := model.NewUser{Name: req.Name, Email: req.Email, Role: req.Role}
	if req.Password != "" {
		if s.hasher == nil {
			return nil, fmt.Errorf("create user: no password hasher configured")
		}
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		nu.PasswordHash = &hash
	}
	u, err := s.repo.Create(ctx, nu)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateRole changes a user's role. Unknown roles are rejected as validation errors.
func (s *UserService) UpdateRole(ctx context.Context, id string, req model.UpdateUserRoleRequest) (*model.User, error) {
	role, err := req.Parse()
	if err != nil {
		return nil, err
	}
	u, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.logger.InfoContext(ctx, "user role changed", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// SetPassword replaces a user's password hash.
func (s *UserService) SetPassword(ctx context.Context, id, password string) error {
	if s.hasher == nil {
		return fmt.Errorf("set password: no password hasher configured")
	}
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePasswordHash(ctx, id, hash)
}
