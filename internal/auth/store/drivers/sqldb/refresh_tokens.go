package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
)

type refreshTokensRepo struct {
	c conn
}

func (r *refreshTokensRepo) Create(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO refresh_tokens
			(id, account_id, chain_id, token_hash, csrf_hash, amr, ip, user_agent, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.ChainID, t.TokenHash, t.CSRFHash, strings.Join(t.AMR, " "),
		t.IP, t.UserAgent, toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *refreshTokensRepo) GetByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t                domain.RefreshToken
		amr              string
		expires, created int64
		revokedAt        sql.NullInt64
	)
	err := r.c.queryRow(ctx, `
		SELECT id, account_id, chain_id, token_hash, csrf_hash, amr, ip, user_agent,
			expires_at, created_at, revoked_at, revoked_reason, replaced_by
		FROM refresh_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.AccountID, &t.ChainID, &t.TokenHash, &t.CSRFHash, &amr, &t.IP, &t.UserAgent,
			&expires, &created, &revokedAt, &t.RevokedReason, &t.ReplacedBy)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.AMR = splitFields(amr)
	t.ExpiresAt = fromMillis(expires)
	t.CreatedAt = fromMillis(created)
	t.RevokedAt = fromNullMillis(revokedAt)
	t.Revoked = revokedAt.Valid
	return t, nil
}

func (r *refreshTokensRepo) RevokeIfActive(ctx context.Context, id, reason, replacedBy string, now time.Time) (bool, error) {
	n, err := r.c.affected(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_reason = ?, replaced_by = ?, csrf_hash = ''
		WHERE id = ? AND revoked_at IS NULL AND expires_at > ?`,
		toMillis(now), reason, replacedBy, id, toMillis(now))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) Revoke(ctx context.Context, hash, reason string, now time.Time) (bool, error) {
	n, err := r.c.affected(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_reason = ?, csrf_hash = ''
		WHERE token_hash = ? AND revoked_at IS NULL`,
		toMillis(now), reason, hash)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *refreshTokensRepo) RevokeChain(ctx context.Context, chainID, reason string, now time.Time) (int64, error) {
	return r.c.affected(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_reason = ?, csrf_hash = ''
		WHERE chain_id = ? AND revoked_at IS NULL`,
		toMillis(now), reason, chainID)
}

func (r *refreshTokensRepo) RevokeAllForAccount(ctx context.Context, accountID, reason string, now time.Time) (int64, error) {
	return r.c.affected(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = ?, revoked_reason = ?, csrf_hash = ''
		WHERE account_id = ? AND revoked_at IS NULL`,
		toMillis(now), reason, accountID)
}

func (r *refreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.affected(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, toMillis(now))
}
