// Package ratelimit bounds failed login and two-factor attempts per
// identity and per origin using fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrLimited means at least one key has used its attempt budget.
	ErrLimited = errors.New("ratelimit: too many attempts")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("ratelimit: backend unavailable")
)

// Policy is the attempt budget for one window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts attempts. Reserve counts an attempt before the expensive
// work runs, so concurrent callers cannot all pass a read-only check.
// Release refunds one reservation and Reset clears keys after a success.
type Limiter interface {
	// Reserve counts one attempt against every key. It returns ErrLimited,
	// and how long until the window resets, when any key is over
	// MaxAttempts after counting.
	Reserve(ctx context.Context, keys ...string) (time.Duration, error)
	Release(ctx context.Context, keys ...string) error
	Reset(ctx context.Context, keys ...string) error
}

// LoginKeys returns the keys a login attempt counts against.
func LoginKeys(email, ip string) []string {
	keys := []string{"login:email:" + strings.ToLower(strings.TrimSpace(email))}
	if ip != "" {
		keys = append(keys, "login:ip:"+ip)
	}
	return keys
}

// TwoFactorKeys returns the keys a second-factor attempt counts against.
func TwoFactorKeys(accountID string) []string {
	return []string{"2fa:account:" + accountID}
}
