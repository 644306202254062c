package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
)

// Login checks email and password. Accounts without two-factor get a
// session straight away; enrolled accounts get a challenge token that
// VerifyTwoFactor redeems.
//
// Unknown email, wrong password and inactive account all return
// ErrInvalidCredentials. The audit trail records which one it was.
func (s *AuthService) Login(ctx context.Context, email, password string, origin domain.Origin) (*domain.LoginResult, error) {
	now := s.now()
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)
	keys := ratelimit.LoginKeys(email, origin.IP)

	if err := s.reserveAttempt(ctx, s.loginLimiter, keys); err != nil {
		s.emit(ctx, domain.NewAuditEvent(domain.ActionLogin, domain.StatusFailure, "", origin, now).
			With("reason", "rate_limited"))
		return nil, err
	}

	account, reason, err := s.checkPassword(ctx, email, password)
	if err != nil {
		s.releaseAttempt(ctx, s.loginLimiter, keys)
		return nil, err
	}
	if reason != "" {
		// The reservation already counted this failure.
		s.emit(ctx, domain.NewAuditEvent(domain.ActionLogin, domain.StatusFailure, account.ID, origin, now).
			With("reason", reason))
		l.Info("login failed", slog.String("reason", reason))
		return nil, ErrInvalidCredentials
	}

	// Only the identity key is cleared; the origin key keeps its earlier
	// failures so a valid login cannot launder failures against other
	// accounts. This success is refunded from it.
	s.resetLimit(ctx, s.loginLimiter, keys[:1])
	s.releaseAttempt(ctx, s.loginLimiter, keys[1:])
	s.maybeRehash(ctx, &account, password)

	if account.TwoFactorEnabled {
		token, expires, err := s.createChallenge(ctx, &account, origin)
		if err != nil {
			return nil, err
		}
		s.emit(ctx, domain.NewAuditEvent(domain.ActionLogin, domain.StatusSuccess, account.ID, origin, now).
			With("second_factor", "pending"))
		return &domain.LoginResult{
			Account:           &account,
			RequiresTwoFactor: true,
			ChallengeToken:    token,
			ChallengeExpires:  expires,
		}, nil
	}

	sess, err := s.IssueSession(ctx, &account, []string{jwtx.AMRPassword}, origin)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, domain.NewAuditEvent(domain.ActionLogin, domain.StatusSuccess, account.ID, origin, now).
		With("record_id", sess.RecordID))
	return &domain.LoginResult{Account: &account, Session: sess}, nil
}

// checkPassword returns a non-empty reason when the credentials are not
// acceptable. The account is returned when it exists so the failure can be
// attributed.
func (s *AuthService) checkPassword(ctx context.Context, email, password string) (domain.Account, string, error) {
	sctx, cancel := s.storeCtx(ctx)
	account, err := s.store.Accounts().GetByEmail(sctx, email)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		_ = s.hasher.Verify(password, s.dummyHash)
		return domain.Account{}, "unknown_account", nil
	}
	if err != nil {
		return domain.Account{}, "", err
	}

	if err := s.hasher.Verify(password, account.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			slogx.FromContext(ctx).Error("password hash unreadable",
				slog.String("account_id", account.ID), slog.Any("error", err))
		}
		return account, "bad_password", nil
	}
	if !account.Active {
		return account, "inactive", nil
	}
	return account, "", nil
}

// maybeRehash upgrades a hash made with older parameters. Failure is logged
// and ignored; the old hash still verifies.
func (s *AuthService) maybeRehash(ctx context.Context, a *domain.Account, password string) {
	if !s.hasher.NeedsRehash(a.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		sctx, cancel := s.storeCtx(ctx)
		err = s.store.Accounts().UpdatePasswordHash(sctx, a.ID, hash, s.now())
		cancel()
	}
	if err != nil {
		slogx.FromContext(ctx).Warn("password rehash failed", slog.String("account_id", a.ID), slog.Any("error", err))
		return
	}
	a.PasswordHash = hash
}

// IssueSession starts a new rotation chain for an authenticated account.
// It trusts the caller to have verified every required factor.
func (s *AuthService) IssueSession(ctx context.Context, a *domain.Account, amr []string, origin domain.Origin) (*domain.Session, error) {
	now := s.now()
	sess, record, err := s.tokens.Mint(a, newChainID(now), amr, origin, now)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.RefreshTokens().Create(sctx, record); err != nil {
		return nil, err
	}
	return sess, nil
}
