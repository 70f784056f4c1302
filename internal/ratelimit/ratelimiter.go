// Package ratelimit limits how many generation submissions a user may make
// per window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another submission is allowed for key.
type Limiter interface {
	// AllowWithDetails counts one attempt. A limit <= 0 is unlimited and
	// reports remaining -1 with a zero resetAt.
	AllowWithDetails(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt time.Time, err error)
}

// NoopLimiter allows everything.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(ctx context.Context, key string) bool {
	return true
}

func (l *NoopLimiter) AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	return true, -1, time.Time{}, nil
}

// Fixed window counter; the window starts at the first attempt.
var windowScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {n, ttl}
`)

// RateLimiter is a Redis fixed-window limiter shared by every server
// instance.
type RateLimiter struct {
	redis  *redis.Client
	window time.Duration
}

// NewRateLimiter creates a limiter with a one minute window.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client, window: time.Minute}
}

// WithWindow changes the window length.
func (l *RateLimiter) WithWindow(window time.Duration) *RateLimiter {
	l.window = window
	return l
}

func (l *RateLimiter) AllowWithDetails(ctx context.Context, key string, limit int) (bool, int, time.Time, error) {
	if limit <= 0 {
		return true, -1, time.Time{}, nil
	}

	res, err := windowScript.Run(ctx, l.redis, []string{l.key(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	count, ttl := res[0], res[1]
	if ttl < 0 {
		ttl = l.window.Milliseconds()
	}
	resetAt := time.Now().Add(time.Duration(ttl) * time.Millisecond)

	if count > int64(limit) {
		return false, 0, resetAt, nil
	}
	return true, limit - int(count), resetAt, nil
}

// GetCurrentUsage returns the attempts counted in the current window.
func (l *RateLimiter) GetCurrentUsage(ctx context.Context, key string) (int64, error) {
	n, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate limit usage: %w", err)
	}
	return n, nil
}

// Reset clears the current window of key.
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.redis.Del(ctx, l.key(key)).Err()
}

func (l *RateLimiter) key(key string) string {
	return "ratelimit:submit:" + key
}
