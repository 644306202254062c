package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a single-process Limiter for development and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	policy  Policy
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewMemoryLimiter creates a limiter; now defaults to time.Now.
func NewMemoryLimiter(p Policy, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{policy: p, now: now, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Reserve(_ context.Context, keys ...string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var retry time.Duration
	limited := false
	for _, key := range keys {
		w := l.live(key, now)
		if w == nil {
			w = &window{resetAt: now.Add(l.policy.Window)}
			l.windows[key] = w
		}
		w.count++
		if w.count > l.policy.MaxAttempts {
			limited = true
			retry = max(retry, w.resetAt.Sub(now))
		}
	}
	if limited {
		return retry, ErrLimited
	}
	return 0, nil
}

func (l *MemoryLimiter) Release(_ context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, key := range keys {
		if w := l.live(key, now); w != nil && w.count > 0 {
			w.count--
		}
	}
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, keys ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, key := range keys {
		delete(l.windows, key)
	}
	return nil
}

// live returns the key's window, dropping it if it has ended.
func (l *MemoryLimiter) live(key string, now time.Time) *window {
	w, ok := l.windows[key]
	if !ok {
		return nil
	}
	if !now.Before(w.resetAt) {
		delete(l.windows, key)
		return nil
	}
	return w
}
