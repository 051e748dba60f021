package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role is the closed set of dashboard roles.
// The string form is what travels in session tokens and the users table.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleTester  Role = "TESTER"
	RoleViewer  Role = "VIEWER"
)

// Roles lists every valid role, most privileged first.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleTester, RoleViewer}
}

// ParseRole converts a raw role string into a Role.
// Matching is exact; callers that accept user input should use ParseRoleFold.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleManager, RoleTester, RoleViewer:
		return Role(raw), true
	default:
		return "", false
	}
}

// ParseRoleFold is ParseRole after trimming and upper-casing the input.
func ParseRoleFold(raw string) (Role, bool) {
	return ParseRole(strings.ToUpper(strings.TrimSpace(raw)))
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Identity is the authenticated principal attached to a request.
// It is immutable for the lifetime of the request.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Valid reports whether the identity satisfies the minimum shape a resolved
// session must have: a non-empty id and a role from the closed set.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.ID) != "" && i.Role.Valid()
}

// ExternalIdentity is the principal returned by an identity provider before
// it is matched to a dashboard user.
type ExternalIdentity struct {
	Subject   string // stable provider identifier (sub or samAccountName)
	Name      string
	Email     string
	Groups    []string
	ExpiresAt time.Time
}
