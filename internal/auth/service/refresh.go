package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
)

// errLostRace aborts the rotation transaction when another request revoked
// the record first.
var errLostRace = errors.New("refresh record no longer active")

// Rotate exchanges a refresh secret for a new session in the same chain.
// csrfToken must match the anti-forgery binding of the presented record.
//
// Every rejection surfaces as ErrInvalidSession (or ErrCSRFMismatch); the
// audit trail says which case it was. Store failures fail closed.
func (s *AuthService) Rotate(ctx context.Context, refreshSecret, csrfToken string, origin domain.Origin) (*domain.Session, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	if refreshSecret == "" {
		return nil, ErrInvalidSession
	}

	sctx, cancel := s.storeCtx(ctx)
	old, err := s.store.RefreshTokens().GetByHash(sctx, s.tokens.RefreshHash(refreshSecret))
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		s.emit(ctx, domain.NewAuditEvent(domain.ActionRefresh, domain.StatusFailure, "", origin, now).
			With("reason", "unknown"))
		return nil, ErrInvalidSession
	}
	if err != nil {
		l.Error("refresh lookup failed", slog.Any("error", err))
		return nil, ErrInvalidSession
	}

	if old.Revoked {
		s.handleReplay(ctx, old, origin, now)
		return nil, ErrInvalidSession
	}
	if !now.Before(old.ExpiresAt) {
		s.emit(ctx, s.refreshFailure(old, origin, now, "expired"))
		return nil, ErrInvalidSession
	}
	if err := s.csrf.Verify(csrfToken, old.CSRFHash); err != nil {
		s.emit(ctx, s.refreshFailure(old, origin, now, "csrf_mismatch"))
		return nil, err
	}

	sctx, cancel = s.storeCtx(ctx)
	account, err := s.store.Accounts().GetByID(sctx, old.AccountID)
	cancel()
	if err != nil || !account.Active {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			l.Error("refresh account lookup failed", slog.Any("error", err))
		}
		s.emit(ctx, s.refreshFailure(old, origin, now, "account_unavailable"))
		return nil, ErrInvalidSession
	}

	sess, next, err := s.tokens.Mint(&account, old.ChainID, old.AMR, origin, now)
	if err != nil {
		return nil, err
	}

	// Compare-and-swap on the old record, then insert its successor. Both
	// commit or neither does.
	sctx, cancel = s.storeCtx(ctx)
	defer cancel()
	err = s.store.WithTx(sctx, func(tx store.Tx) error {
		ok, err := tx.RefreshTokens().RevokeIfActive(sctx, old.ID, domain.RevokeRotated, next.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errLostRace
		}
		return tx.RefreshTokens().Create(sctx, next)
	})
	if err != nil {
		reason := "lost_race"
		if !errors.Is(err, errLostRace) {
			reason = "store_error"
			l.Error("refresh rotation failed", slog.Any("error", err))
		}
		s.emit(ctx, s.refreshFailure(old, origin, now, reason))
		return nil, ErrInvalidSession
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionRefresh, domain.StatusSuccess, account.ID, origin, now).
		With("old_record_id", old.ID).
		With("new_record_id", next.ID).
		With("chain_id", old.ChainID))
	return sess, nil
}

// handleReplay deals with a revoked record being presented again. A token
// rotated away longer than the grace period ago can only be presented by
// someone holding a stale copy, so the whole chain is revoked. Inside the
// grace period it is most likely two tabs racing and is only rejected.
func (s *AuthService) handleReplay(ctx context.Context, old domain.RefreshToken, origin domain.Origin, now time.Time) {
	stale := old.RevokedReason == domain.RevokeRotated &&
		old.RevokedAt != nil &&
		now.Sub(*old.RevokedAt) > s.reuseGrace
	if !stale {
		s.emit(ctx, s.refreshFailure(old, origin, now, "revoked").
			With("revoked_reason", old.RevokedReason))
		return
	}

	sctx, cancel := s.storeCtx(ctx)
	n, err := s.store.RefreshTokens().RevokeChain(sctx, old.ChainID, domain.RevokeReuseDetected, now)
	cancel()
	if err != nil {
		slogx.FromContext(ctx).Error("failed to revoke reused chain",
			slog.String("chain_id", old.ChainID), slog.Any("error", err))
	}
	slogx.FromContext(ctx).Warn("refresh token reuse detected",
		slog.String("account_id", old.AccountID),
		slog.String("chain_id", old.ChainID),
		slog.Int64("revoked", n))

	s.emit(ctx, domain.NewAuditEvent(domain.ActionRefreshReuseDetected, domain.StatusFailure, old.AccountID, origin, now).
		With("record_id", old.ID).
		With("chain_id", old.ChainID).
		With("revoked", strconv.FormatInt(n, 10)))
}

func (s *AuthService) refreshFailure(old domain.RefreshToken, origin domain.Origin, now time.Time, reason string) domain.AuditEvent {
	return domain.NewAuditEvent(domain.ActionRefresh, domain.StatusFailure, old.AccountID, origin, now).
		With("reason", reason).
		With("record_id", old.ID)
}

// Logout revokes the session behind refreshSecret and with it the
// anti-forgery binding. Unknown or already revoked secrets are not an
// error. Access tokens already handed out stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, refreshSecret string, origin domain.Origin) error {
	now := s.now()
	if refreshSecret == "" {
		return nil
	}
	hash := s.tokens.RefreshHash(refreshSecret)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var accountID string
	if rt, err := s.store.RefreshTokens().GetByHash(sctx, hash); err == nil {
		accountID = rt.AccountID
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	revoked, err := s.store.RefreshTokens().Revoke(sctx, hash, domain.RevokeLogout, now)
	if err != nil {
		return err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionLogout, domain.StatusSuccess, accountID, origin, now).
		With("revoked", strconv.FormatBool(revoked)))
	return nil
}

// RevokeAllSessions revokes every live refresh record of the account.
func (s *AuthService) RevokeAllSessions(ctx context.Context, accountID string, origin domain.Origin) (int64, error) {
	now := s.now()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	n, err := s.store.RefreshTokens().RevokeAllForAccount(sctx, accountID, domain.RevokeAll, now)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, domain.NewAuditEvent(domain.ActionRevokeAll, domain.StatusSuccess, accountID, origin, now).
		With("revoked", strconv.FormatInt(n, 10)))
	return n, nil
}

// DeactivateAccount disables login for the account and revokes its
// sessions in one transaction.
func (s *AuthService) DeactivateAccount(ctx context.Context, accountID string, origin domain.Origin) error {
	now := s.now()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var n int64
	err := s.store.WithTx(sctx, func(tx store.Tx) error {
		if err := tx.Accounts().SetActive(sctx, accountID, false, now); err != nil {
			return err
		}
		var err error
		n, err = tx.RefreshTokens().RevokeAllForAccount(sctx, accountID, domain.RevokeAll, now)
		return err
	})
	if err != nil {
		return err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionAccountDeactivated, domain.StatusSuccess, accountID, origin, now).
		With("revoked", strconv.FormatInt(n, 10)))
	return nil
}

// newChainID starts a rotation chain.
func newChainID(now time.Time) string { return idx.NewAt(now).String() }
