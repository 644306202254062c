package domain

import (
	"strings"
	"time"
)

// Account is an administrator identity. Accounts are deactivated, never
// hard-deleted, so sessions and audit entries keep their references.
type Account struct {
	ID           string
	Email        string // normalized, see NormalizeEmail
	PasswordHash string // argon2id PHC string
	DisplayName  string
	Role         Role
	Active       bool

	// TwoFactorSecret is the sealed TOTP seed. Non-nil iff two-factor is
	// enabled or enrollment is in progress.
	TwoFactorSecret  *string
	TwoFactorEnabled bool
	// LastTOTPStep is the last accepted TOTP time step, used to reject
	// replays of a code inside its validity window.
	LastTOTPStep int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
