// Package auth contains hand-written test doubles for the auth ports.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.RoleMapper     = StaticRoleMapper{}
	_ ports.PasswordHasher = PlainHasher{}
	_ ports.LoginLimiter   = (*MemoryLoginLimiter)(nil)
	_ ports.SessionCodec   = (*MemorySessionCodec)(nil)
)

// MockAuthProvider simulates an IdP with deterministic state and nonce values.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.ExternalIdentity, error)

	AuthURL     string
	DefaultUser domainauth.ExternalIdentity

	mu        sync.Mutex
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.ExternalIdentity{
			Subject: "mock-user-1",
			Name:    "Mock User",
			Email:   "mock.user@example.test",
			Groups:  []string{"qa-testers"},
		},
	}
}

// Begin returns AuthURL with state-N and nonce-N for the Nth call.
func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()
	return m.AuthURL, fmt.Sprintf("state-%d", n), fmt.Sprintf("nonce-%d", n), nil
}

// Exchange returns DefaultUser with a fresh expiry.
func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ExternalIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	u := m.DefaultUser
	u.ExpiresAt = time.Now().Add(time.Hour)
	return u, nil
}

// StaticRoleMapper returns Role for every input, or VIEWER when unset.
type StaticRoleMapper struct {
	Role domainauth.Role
}

func (m StaticRoleMapper) Map(_ []string) domainauth.Role {
	if m.Role == "" {
		return domainauth.RoleViewer
	}
	return m.Role
}

// PlainHasher stores passwords as "plain:<password>". Tests only.
type PlainHasher struct{}

const plainPrefix = "plain:"

func (PlainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	return plainPrefix + password, nil
}

func (PlainHasher) Verify(password, encodedHash string) (bool, error) {
	stored, ok := strings.CutPrefix(encodedHash, plainPrefix)
	if !ok {
		return false, errors.New("malformed hash")
	}
	return stored == password, nil
}

// MemoryLoginLimiter counts failures in memory with no expiry.
type MemoryLoginLimiter struct {
	Max int

	mu       sync.Mutex
	failures map[string]int
}

// NewMemoryLoginLimiter creates a limiter that locks after limit failures.
func NewMemoryLoginLimiter(limit int) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{Max: limit, failures: map[string]int{}}
}

func (l *MemoryLoginLimiter) key(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (l *MemoryLoginLimiter) Check(_ context.Context, email, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failures[l.key(email)] >= l.Max {
		return ports.ErrRateLimited
	}
	return nil
}

func (l *MemoryLoginLimiter) RecordFailure(_ context.Context, email, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[l.key(email)]++
	return nil
}

func (l *MemoryLoginLimiter) Reset(_ context.Context, email string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, l.key(email))
	return nil
}

// Failures returns the recorded failure count for email.
func (l *MemoryLoginLimiter) Failures(email string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[l.key(email)]
}

// MemorySessionCodec hands out opaque tokens backed by a map.
type MemorySessionCodec struct {
	TTL time.Duration

	mu     sync.Mutex
	seq    int
	tokens map[string]domainauth.Identity
}

// NewMemorySessionCodec creates an empty codec.
func NewMemorySessionCodec() *MemorySessionCodec {
	return &MemorySessionCodec{TTL: time.Hour, tokens: map[string]domainauth.Identity{}}
}

func (c *MemorySessionCodec) Issue(identity domainauth.Identity) (ports.IssuedSession, error) {
	if !identity.Valid() {
		return ports.IssuedSession{}, errors.New("invalid identity")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	tok := fmt.Sprintf("session-%d", c.seq)
	c.tokens[tok] = identity
	return ports.IssuedSession{Token: tok, ExpiresAt: time.Now().Add(c.TTL)}, nil
}

func (c *MemorySessionCodec) Verify(token string) (domainauth.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.tokens[token]
	if !ok {
		return domainauth.Identity{}, ports.ErrInvalidSession
	}
	return id, nil
}
