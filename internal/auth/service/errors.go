package service

import (
	"errors"
	"fmt"
	"time"
)

// Expected outcomes. Callers branch on these with errors.Is; anything else
// is a fault.
var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive account alike.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidTwoFactorCode = errors.New("invalid_two_factor_code")
	// ErrInvalidChallenge means the pending two-factor state is unknown,
	// expired, exhausted or belongs to another account.
	ErrInvalidChallenge = errors.New("invalid_challenge")

	ErrTwoFactorNotEnrolled    = errors.New("two_factor_not_enrolled")
	ErrTwoFactorAlreadyEnabled = errors.New("two_factor_already_enabled")
	ErrTwoFactorNotEnabled     = errors.New("two_factor_not_enabled")

	// ErrInvalidSession covers unknown, revoked and expired refresh tokens,
	// and any store failure during rotation.
	ErrInvalidSession = errors.New("invalid_session")
	ErrCSRFMismatch   = errors.New("csrf_mismatch")

	ErrInvalidToken = errors.New("invalid_token")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate_limited")
)

// RateLimitError is returned when an attempt budget is spent. It matches
// ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate_limited: retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
