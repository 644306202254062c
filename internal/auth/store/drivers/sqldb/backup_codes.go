package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
)

type backupCodesRepo struct {
	c conn
}

func (r *backupCodesRepo) ReplaceAll(ctx context.Context, accountID string, hashes []string, now time.Time) error {
	if err := r.DeleteAll(ctx, accountID); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := r.c.exec(ctx,
			`INSERT INTO backup_codes (id, account_id, code_hash, created_at) VALUES (?, ?, ?, ?)`,
			idx.NewAt(now).String(), accountID, h, toMillis(now)); err != nil {
			return err
		}
	}
	return nil
}

func (r *backupCodesRepo) ListUnused(ctx context.Context, accountID string) ([]domain.BackupCode, error) {
	rows, err := r.c.query(ctx, `
		SELECT id, account_id, code_hash, used_at, created_at
		FROM backup_codes WHERE account_id = ? AND used_at IS NULL
		ORDER BY id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BackupCode
	for rows.Next() {
		var (
			bc      domain.BackupCode
			usedAt  sql.NullInt64
			created int64
		)
		if err := rows.Scan(&bc.ID, &bc.AccountID, &bc.CodeHash, &usedAt, &created); err != nil {
			return nil, err
		}
		bc.UsedAt = fromNullMillis(usedAt)
		bc.CreatedAt = fromMillis(created)
		out = append(out, bc)
	}
	return out, rows.Err()
}

func (r *backupCodesRepo) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	n, err := r.c.affected(ctx,
		`UPDATE backup_codes SET used_at = ? WHERE id = ? AND used_at IS NULL`, toMillis(now), id)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *backupCodesRepo) CountUnused(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.c.queryRow(ctx,
		`SELECT COUNT(*) FROM backup_codes WHERE account_id = ? AND used_at IS NULL`, accountID).Scan(&n)
	return n, err
}

func (r *backupCodesRepo) DeleteAll(ctx context.Context, accountID string) error {
	_, err := r.c.exec(ctx, `DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}
