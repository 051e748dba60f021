//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

const (
	maxUserNameLen    = 255
	minPasswordLength = 10
)

// User is a dashboard account. PasswordHash is empty for SSO-only users.
type User struct {
	ID           string          `json:"id"         db:"id"`
	Name         string          `json:"name"       db:"name"`
	Email        string          `json:"email"      db:"email"`
	PasswordHash *string         `json:"-"          db:"password_hash"`
	Role         domainauth.Role `json:"role"       db:"role"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Identity projects the user into the request principal carried in sessions.
func (u *User) Identity() domainauth.Identity {
	return domainauth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// HasPassword reports whether the account can sign in with credentials.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUserRequest holds the inputs for provisioning an account.
// Password is plaintext and is hashed by the service before storage.
type CreateUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password,omitempty"`
	Role     domainauth.Role `json:"role"`
}

// Validate normalizes and validates CreateUserRequest.
func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if utf8.RuneCountInString(r.Name) > maxUserNameLen {
		return apperrors.ValidationField("name", "name cannot exceed 255 characters")
	}
	r.Email = NormalizeEmail(r.Email)
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		return apperrors.ValidationField("email", "a valid email is required")
	}
	if r.Role == "" {
		r.Role = domainauth.RoleViewer
	}
	if !r.Role.Valid() {
		return apperrors.ValidationField("role", "role must be one of ADMIN, MANAGER, TESTER, VIEWER")
	}
	if r.Password != "" {
		return ValidatePassword(r.Password)
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.ValidationField("password", "password must be at least 10 characters")
	}
	return nil
}

// UpdateUserRoleRequest changes a user's role.
type UpdateUserRoleRequest struct {
	Role string `json:"role"`
}

// Parse validates the requested role against the closed set.
func (r UpdateUserRoleRequest) Parse() (domainauth.Role, error) {
	role, ok := domainauth.ParseRoleFold(r.Role)
	if !ok {
		return "", apperrors.ValidationField("role", "role must be one of ADMIN, MANAGER, TESTER, VIEWER")
	}
	return role, nil
}

// NewUser is what the repository persists for a new account.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash *string
	Role         domainauth.Role
}
