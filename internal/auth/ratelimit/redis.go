package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript decrements a live counter without creating one or going
// below zero.
var releaseScript = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// RedisLimiter keeps counters in Redis so every instance shares them.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	policy Policy
	prefix string
}

// NewRedisLimiter creates a limiter; prefix namespaces keys (e.g. "adminauth:").
func NewRedisLimiter(rdb redis.UniversalClient, prefix string, p Policy) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policy: p, prefix: prefix}
}

// Reserve INCRs first and compares after, so the counter itself is the
// admission decision.
func (l *RedisLimiter) Reserve(ctx context.Context, keys ...string) (time.Duration, error) {
	var retry time.Duration
	limited := false
	for _, key := range keys {
		count, err := l.rdb.Incr(ctx, l.prefix+key).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		// Fixed-window semantics: set TTL only for the first hit in the window.
		if count == 1 {
			if err := l.rdb.Expire(ctx, l.prefix+key, l.policy.Window).Err(); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}

		if count > int64(l.policy.MaxAttempts) {
			limited = true
			ttl, err := l.rdb.TTL(ctx, l.prefix+key).Result()
			if err != nil || ttl < 0 {
				ttl = l.policy.Window
			}
			retry = max(retry, ttl)
		}
	}
	if limited {
		return retry, ErrLimited
	}
	return 0, nil
}

func (l *RedisLimiter) Release(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + key}).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = l.prefix + k
	}
	if err := l.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}
