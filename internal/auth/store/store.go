package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are methods so a transaction can hand out
// the same repos bound to its own connection.
type Store interface {
	Accounts() Accounts
	RefreshTokens() RefreshTokens
	BackupCodes() BackupCodes
	Challenges() Challenges

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. Repos obtained
	// from the outer Store must not be used inside fn.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported and
// return sql.ErrTxDone.
type Tx interface {
	Store
}

type Accounts interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)

	// GetByEmail looks up by normalized email.
	GetByEmail(ctx context.Context, email string) (domain.Account, error)

	// Create inserts a new account; ErrAlreadyExists on duplicate email.
	Create(ctx context.Context, a domain.Account) error

	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error

	// SetTwoFactorSecret stores a sealed TOTP seed and marks enrollment as
	// in progress (two-factor stays disabled until EnableTwoFactor).
	SetTwoFactorSecret(ctx context.Context, id, sealed string, now time.Time) error
	EnableTwoFactor(ctx context.Context, id string, now time.Time) error
	// DisableTwoFactor clears the secret, the enabled flag and the last step.
	DisableTwoFactor(ctx context.Context, id string, now time.Time) error

	// AdvanceTOTPStep records step as the last accepted TOTP step. It reports
	// false when step is not newer than the stored one (a replay).
	AdvanceTOTPStep(ctx context.Context, id string, step int64) (bool, error)
}

type RefreshTokens interface {
	Create(ctx context.Context, t domain.RefreshToken) error

	// GetByHash returns the record whatever its state; callers decide
	// validity so that replays can be told apart from unknown tokens.
	GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeIfActive revokes the record only if it is still unrevoked and
	// unexpired at now. It reports true iff exactly one row changed, which
	// makes it the compare-and-swap step of rotation.
	RevokeIfActive(ctx context.Context, id, reason, replacedBy string, now time.Time) (bool, error)

	// Revoke revokes by token hash. Revoking an unknown or already revoked
	// token is not an error; the bool reports whether a row changed.
	Revoke(ctx context.Context, hash, reason string, now time.Time) (bool, error)

	RevokeChain(ctx context.Context, chainID, reason string, now time.Time) (int64, error)
	RevokeAllForAccount(ctx context.Context, accountID, reason string, now time.Time) (int64, error)

	// DeleteExpired removes records whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type BackupCodes interface {
	// ReplaceAll drops every code of the account and inserts the new hashes.
	// Call it inside WithTx.
	ReplaceAll(ctx context.Context, accountID string, hashes []string, now time.Time) error

	ListUnused(ctx context.Context, accountID string) ([]domain.BackupCode, error)

	// Consume marks the code used; false if it was already used.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)

	CountUnused(ctx context.Context, accountID string) (int, error)
	DeleteAll(ctx context.Context, accountID string) error
}

// Challenges hold the pending two-factor state between password and code.
type Challenges interface {
	Create(ctx context.Context, c domain.Challenge) error
	GetByHash(ctx context.Context, hash string) (domain.Challenge, error)

	// IncrementAttempts bumps the failed-attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Delete removes the challenge; ErrNotFound if it is already gone, so
	// only one caller can redeem it.
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
