package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	apperrors "github.com/agentqa/qa-dashboard/internal/errors"
)

var (
	// ErrRateLimited is returned by LoginLimiter once an attempt budget is spent.
	ErrRateLimited = apperrors.RateLimited("Too many login attempts. Try again later.")

	// ErrInvalidSession covers every reason a session token is rejected.
	ErrInvalidSession = errors.New("invalid session token")
)

// BeginInput carries inputs for initiating an SSO flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the external identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.ExternalIdentity, error)
}

// RoleMapper maps provider groups to a dashboard role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// IssuedSession is a freshly signed session token.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
}

// SessionCodec signs and verifies stateless session tokens.
// Verify must not perform I/O; it is on every request's hot path.
type SessionCodec interface {
	Issue(identity domainauth.Identity) (IssuedSession, error)
	Verify(token string) (domainauth.Identity, error)
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// LoginLimiter throttles credential sign-in attempts per account and client address.
type LoginLimiter interface {
	// Check returns an error wrapping ErrRateLimited when the budget is exhausted.
	Check(ctx context.Context, email, ip string) error
	// RecordFailure counts a failed attempt.
	RecordFailure(ctx context.Context, email, ip string) error
	// Reset clears the account counter after a successful sign-in.
	// Per-address counters are not cleared.
	Reset(ctx context.Context, email string) error
}
