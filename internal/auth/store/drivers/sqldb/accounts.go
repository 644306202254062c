package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
)

type accountsRepo struct {
	c conn
}

const accountColumns = `id, email, password_hash, display_name, role, deactivated_at,
	two_factor_secret, two_factor_enabled_at, last_totp_step, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a                      domain.Account
		role                   string
		deactivated, enabledAt sql.NullInt64
		secret                 sql.NullString
		created, updated       int64
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.DisplayName, &role, &deactivated,
		&secret, &enabledAt, &a.LastTOTPStep, &created, &updated); err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	a.Role = domain.Role(role)
	a.Active = !deactivated.Valid
	a.TwoFactorSecret = mapNullStringPtr(secret)
	a.TwoFactorEnabled = enabledAt.Valid
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

func (r *accountsRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(r.c.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	return scanAccount(r.c.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, domain.NormalizeEmail(email)))
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	var deactivated sql.NullInt64
	if !a.Active {
		deactivated = sql.NullInt64{Int64: toMillis(a.UpdatedAt), Valid: true}
	}
	var secret sql.NullString
	if a.TwoFactorSecret != nil {
		secret = sql.NullString{String: *a.TwoFactorSecret, Valid: true}
	}
	var enabledAt sql.NullInt64
	if a.TwoFactorEnabled {
		enabledAt = sql.NullInt64{Int64: toMillis(a.CreatedAt), Valid: true}
	}

	_, err := r.c.exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, domain.NormalizeEmail(a.Email), a.PasswordHash, a.DisplayName, string(a.Role), deactivated,
		secret, enabledAt, a.LastTOTPStep, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	var deactivated sql.NullInt64
	if !active {
		deactivated = sql.NullInt64{Int64: toMillis(now), Valid: true}
	}
	return r.mustUpdate(ctx, `UPDATE accounts SET deactivated_at = ?, updated_at = ? WHERE id = ?`,
		deactivated, toMillis(now), id)
}

func (r *accountsRepo) UpdatePasswordHash(ctx context.Context, id, hash string, now time.Time) error {
	return r.mustUpdate(ctx, `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(now), id)
}

func (r *accountsRepo) SetTwoFactorSecret(ctx context.Context, id, sealed string, now time.Time) error {
	return r.mustUpdate(ctx, `
		UPDATE accounts
		SET two_factor_secret = ?, two_factor_enabled_at = NULL, last_totp_step = 0, updated_at = ?
		WHERE id = ?`,
		sealed, toMillis(now), id)
}

func (r *accountsRepo) EnableTwoFactor(ctx context.Context, id string, now time.Time) error {
	return r.mustUpdate(ctx, `
		UPDATE accounts SET two_factor_enabled_at = ?, updated_at = ?
		WHERE id = ? AND two_factor_secret IS NOT NULL`,
		toMillis(now), toMillis(now), id)
}

func (r *accountsRepo) DisableTwoFactor(ctx context.Context, id string, now time.Time) error {
	return r.mustUpdate(ctx, `
		UPDATE accounts
		SET two_factor_secret = NULL, two_factor_enabled_at = NULL, last_totp_step = 0, updated_at = ?
		WHERE id = ?`,
		toMillis(now), id)
}

func (r *accountsRepo) AdvanceTOTPStep(ctx context.Context, id string, step int64) (bool, error) {
	n, err := r.c.affected(ctx,
		`UPDATE accounts SET last_totp_step = ? WHERE id = ? AND last_totp_step < ?`, step, id, step)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// mustUpdate maps "no row changed" to ErrNotFound.
func (r *accountsRepo) mustUpdate(ctx context.Context, query string, args ...any) error {
	n, err := r.c.affected(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
