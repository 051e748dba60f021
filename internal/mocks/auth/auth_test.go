package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/agentqa/qa-dashboard/internal/domain/auth"
	"github.com/agentqa/qa-dashboard/internal/ports"
)

func TestMockAuthProvider_Begin_Deterministic(t *testing.T) {
	p := NewMockAuthProvider()
	ctx := context.Background()

	url, state, nonce, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", url)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state, nonce, err = p.Begin(ctx, ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.Equal(t, "state-2", state)
	assert.Equal(t, "nonce-2", nonce)
}

func TestMockAuthProvider_Exchange(t *testing.T) {
	p := NewMockAuthProvider()
	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", id.Subject)
	assert.False(t, id.ExpiresAt.IsZero())
}

func TestPlainHasher(t *testing.T) {
	h := PlainHasher{}
	enc, err := h.Hash("secret-password")
	require.NoError(t, err)
	ok, err := h.Verify("secret-password", enc)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify("nope", enc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLoginLimiter(t *testing.T) {
	l := NewMemoryLoginLimiter(2)
	ctx := context.Background()
	require.NoError(t, l.RecordFailure(ctx, "A@x.test", ""))
	require.NoError(t, l.Check(ctx, "a@x.test", ""))
	require.NoError(t, l.RecordFailure(ctx, "a@x.test", ""))
	assert.ErrorIs(t, l.Check(ctx, "a@x.test", ""), ports.ErrRateLimited)
	require.NoError(t, l.Reset(ctx, "a@x.test"))
	assert.Equal(t, 0, l.Failures("a@x.test"))
}

func TestMemorySessionCodec(t *testing.T) {
	c := NewMemorySessionCodec()
	id := domainauth.Identity{ID: "u1", Role: domainauth.RoleViewer}
	s, err := c.Issue(id)
	require.NoError(t, err)
	got, err := c.Verify(s.Token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	_, err = c.Verify("unknown")
	assert.ErrorIs(t, err, ports.ErrInvalidSession)
}
