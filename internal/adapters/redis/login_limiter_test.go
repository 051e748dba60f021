package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentqa/qa-dashboard/internal/ports"
	"github.com/agentqa/qa-dashboard/internal/testutil"
)

func TestLoginLimiter_LocksAfterMaxAttempts(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{MaxAttempts: 3, Lockout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "a@example.test", "10.0.0.1"))
		require.NoError(t, l.RecordFailure(ctx, "a@example.test", "10.0.0.1"))
	}
	err := l.Check(ctx, "A@Example.test", "10.0.0.9")
	assert.ErrorIs(t, err, ports.ErrRateLimited, "account key is case-insensitive")

	err = l.Check(ctx, "b@example.test", "10.0.0.1")
	assert.ErrorIs(t, err, ports.ErrRateLimited, "address key is shared across accounts")

	require.NoError(t, l.Check(ctx, "b@example.test", "10.0.0.2"))
}

func TestLoginLimiter_WindowExpires(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{MaxAttempts: 1, Lockout: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "a@example.test", ""))
	require.ErrorIs(t, l.Check(ctx, "a@example.test", ""), ports.ErrRateLimited)

	// A later failure must not extend the original window.
	mr.FastForward(30 * time.Second)
	require.NoError(t, l.RecordFailure(ctx, "a@example.test", ""))
	mr.FastForward(31 * time.Second)
	assert.NoError(t, l.Check(ctx, "a@example.test", ""))
}

func TestLoginLimiter_Reset(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{MaxAttempts: 1, Lockout: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "a@example.test", ""))
	require.Error(t, l.Check(ctx, "a@example.test", ""))
	require.NoError(t, l.Reset(ctx, "a@example.test"))
	assert.NoError(t, l.Check(ctx, "a@example.test", ""))
}

func TestLoginLimiter_ResetKeepsAddressCounter(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{MaxAttempts: 3, Lockout: time.Minute})
	ctx := context.Background()
	const ip = "10.0.0.1"

	// Guesses against rotating accounts, each batch followed by a good sign-in
	// to an account the caller controls.
	throttled := false
	for i := 0; i < 10 && !throttled; i++ {
		victim := fmt.Sprintf("victim-%d@example.test", i)
		if err := l.Check(ctx, victim, ip); err != nil {
			require.ErrorIs(t, err, ports.ErrRateLimited)
			throttled = true
			break
		}
		require.NoError(t, l.RecordFailure(ctx, victim, ip))
		require.NoError(t, l.Reset(ctx, "owner@example.test"))
	}
	assert.True(t, throttled, "address counter survives account resets")
	assert.ErrorIs(t, l.Check(ctx, "owner@example.test", ip), ports.ErrRateLimited)
}

func TestLoginLimiter_RecordFailureRepairsMissingExpiry(t *testing.T) {
	client, mr := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{MaxAttempts: 5, Lockout: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "a@example.test", "10.0.0.1"))
	ipKey := loginKeyPrefix + "ip:10.0.0.1"
	assert.Equal(t, time.Minute, mr.TTL(ipKey))

	// A counter left without an expiry gets one on the next failure.
	staleKey := loginKeyPrefix + "ip:10.0.0.2"
	require.NoError(t, mr.Set(staleKey, "4"))
	require.Zero(t, mr.TTL(staleKey))
	require.NoError(t, l.RecordFailure(ctx, "b@example.test", "10.0.0.2"))
	assert.Equal(t, time.Minute, mr.TTL(staleKey))
	require.ErrorIs(t, l.Check(ctx, "c@example.test", "10.0.0.2"), ports.ErrRateLimited)

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, l.Check(ctx, "c@example.test", "10.0.0.2"))
}

func TestLoginLimiter_Defaults(t *testing.T) {
	client, _ := testutil.SetupTestRedis(t)
	l := NewLoginLimiter(client, LoginLimiterConfig{})
	assert.Equal(t, 5, l.cfg.MaxAttempts)
	assert.Equal(t, 15*time.Minute, l.cfg.Lockout)
}
