package sqldb

import (
	"context"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
)

type challengesRepo struct {
	c conn
}

func (r *challengesRepo) Create(ctx context.Context, ch domain.Challenge) error {
	_, err := r.c.exec(ctx, `
		INSERT INTO two_factor_challenges
			(id, account_id, token_hash, attempts, ip, user_agent, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.AccountID, ch.TokenHash, ch.Attempts, ch.IP, ch.UserAgent,
		toMillis(ch.ExpiresAt), toMillis(ch.CreatedAt))
	return err
}

func (r *challengesRepo) GetByHash(ctx context.Context, hash string) (domain.Challenge, error) {
	var (
		ch               domain.Challenge
		expires, created int64
	)
	err := r.c.queryRow(ctx, `
		SELECT id, account_id, token_hash, attempts, ip, user_agent, expires_at, created_at
		FROM two_factor_challenges WHERE token_hash = ?`, hash).
		Scan(&ch.ID, &ch.AccountID, &ch.TokenHash, &ch.Attempts, &ch.IP, &ch.UserAgent, &expires, &created)
	if err != nil {
		return domain.Challenge{}, mapNotFound(err)
	}
	ch.ExpiresAt = fromMillis(expires)
	ch.CreatedAt = fromMillis(created)
	return ch, nil
}

func (r *challengesRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	// One statement, so concurrent callers each see their own count.
	var attempts int
	err := r.c.queryRow(ctx,
		`UPDATE two_factor_challenges SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`, id).
		Scan(&attempts)
	return attempts, mapNotFound(err)
}

func (r *challengesRepo) Delete(ctx context.Context, id string) error {
	n, err := r.c.affected(ctx, `DELETE FROM two_factor_challenges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *challengesRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.c.affected(ctx, `DELETE FROM two_factor_challenges WHERE expires_at <= ?`, toMillis(now))
}
