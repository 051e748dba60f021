// Package redis holds Redis-backed adapters.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentqa/qa-dashboard/internal/ports"
)

const loginKeyPrefix = "qadash:login:"

// incrWindow increments a failure counter and gives it an expiry if it has none.
// A later failure never extends the window.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// LoginLimiterConfig tunes the sign-in throttle.
type LoginLimiterConfig struct {
	MaxAttempts int
	Lockout     time.Duration
}

// LoginLimiter counts failed sign-ins per account and per client address with
// expiring Redis counters. An account or address is locked out once it
// reaches MaxAttempts failures within the Lockout window.
type LoginLimiter struct {
	client redis.UniversalClient
	cfg    LoginLimiterConfig
}

var _ ports.LoginLimiter = (*LoginLimiter)(nil)

// NewLoginLimiter creates a LoginLimiter.
func NewLoginLimiter(client redis.UniversalClient, cfg LoginLimiterConfig) *LoginLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = 15 * time.Minute
	}
	return &LoginLimiter{client: client, cfg: cfg}
}

// Check returns ports.ErrRateLimited when either counter is exhausted.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) error {
	for _, key := range l.keys(email, ip) {
		n, err := l.client.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("login limiter get: %w", err)
		}
		if n >= int64(l.cfg.MaxAttempts) {
			return ports.ErrRateLimited
		}
	}
	return nil
}

// RecordFailure increments both counters, starting the window on first failure.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email, ip string) error {
	window := l.cfg.Lockout.Milliseconds()
	for _, key := range l.keys(email, ip) {
		if err := incrWindow.Run(ctx, l.client, []string{key}, window).Err(); err != nil {
			return fmt.Errorf("login limiter incr: %w", err)
		}
	}
	return nil
}

// Reset clears the account counter after a successful sign-in.
// The address counter is left to expire so one good account cannot unlock an address.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, l.accountKey(email)).Err(); err != nil {
		return fmt.Errorf("login limiter reset: %w", err)
	}
	return nil
}

func (l *LoginLimiter) keys(email, ip string) []string {
	keys := []string{l.accountKey(email)}
	if ip != "" {
		keys = append(keys, loginKeyPrefix+"ip:"+ip)
	}
	return keys
}

func (l *LoginLimiter) accountKey(email string) string {
	return loginKeyPrefix + "user:" + digest(strings.ToLower(strings.TrimSpace(email)))
}

// digest keeps raw email addresses out of Redis key space.
func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:12])
}
