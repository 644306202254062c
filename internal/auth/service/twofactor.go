package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Second-factor methods recorded in audit metadata.
const (
	methodTOTP       = "totp"
	methodBackupCode = "backup_code"
)

// VerifyTwoFactor redeems a login challenge with a TOTP code or an unused
// backup code and issues a session. Every attempt is counted against both
// the challenge and the per-account limiter before the code is checked.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, accountID, code, challengeToken string, origin domain.Origin) (*domain.Session, error) {
	now := s.now()
	keys := ratelimit.TwoFactorKeys(accountID)

	if err := s.reserveAttempt(ctx, s.twoFactorLimiter, keys); err != nil {
		s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorVerify, domain.StatusFailure, accountID, origin, now).
			With("reason", "rate_limited"))
		return nil, err
	}

	ch, attempts, err := s.claimChallenge(ctx, accountID, challengeToken, now)
	if err != nil {
		s.releaseAttempt(ctx, s.twoFactorLimiter, keys)
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	account, err := s.store.Accounts().GetByID(sctx, accountID)
	cancel()
	if errors.Is(err, store.ErrNotFound) || (err == nil && (!account.Active || !account.TwoFactorEnabled)) {
		s.dropChallenge(ctx, ch.ID)
		s.releaseAttempt(ctx, s.twoFactorLimiter, keys)
		return nil, ErrInvalidChallenge
	}
	if err != nil {
		s.releaseAttempt(ctx, s.twoFactorLimiter, keys)
		return nil, err
	}

	method, err := s.checkSecondFactor(ctx, &account, code, origin, now)
	if err != nil {
		s.releaseAttempt(ctx, s.twoFactorLimiter, keys)
		return nil, err
	}
	if method == "" {
		if attempts >= domain.MaxChallengeAttempts {
			s.dropChallenge(ctx, ch.ID)
		}
		s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorVerify, domain.StatusFailure, account.ID, origin, now).
			With("attempts", strconv.Itoa(attempts)))
		return nil, ErrInvalidTwoFactorCode
	}

	// The challenge is single use; losing this delete means another request
	// already redeemed it.
	sctx, cancel = s.storeCtx(ctx)
	err = s.store.Challenges().Delete(sctx, ch.ID)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidChallenge
	}
	if err != nil {
		return nil, err
	}
	s.resetLimit(ctx, s.twoFactorLimiter, keys)

	amr := []string{jwtx.AMRPassword, jwtx.AMRMFA}
	if method == methodTOTP {
		amr = []string{jwtx.AMRPassword, jwtx.AMROTP, jwtx.AMRMFA}
	}
	sess, err := s.IssueSession(ctx, &account, amr, origin)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorVerify, domain.StatusSuccess, account.ID, origin, now).
		With("method", method).
		With("record_id", sess.RecordID))
	return sess, nil
}

// createChallenge records the pending state after a successful password
// step and returns the plaintext challenge token.
func (s *AuthService) createChallenge(ctx context.Context, a *domain.Account, origin domain.Origin) (string, time.Time, error) {
	now := s.now()
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", time.Time{}, err
	}
	ch := domain.Challenge{
		ID:        idx.NewAt(now).String(),
		AccountID: a.ID,
		TokenHash: s.challengeHash(token),
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		ExpiresAt: now.Add(s.challengeTTL),
		CreatedAt: now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.Challenges().Create(sctx, ch); err != nil {
		return "", time.Time{}, fmt.Errorf("create challenge: %w", err)
	}
	return token, ch.ExpiresAt, nil
}

func (s *AuthService) loadChallenge(ctx context.Context, accountID, token string, now time.Time) (domain.Challenge, error) {
	if token == "" || accountID == "" {
		return domain.Challenge{}, ErrInvalidChallenge
	}

	sctx, cancel := s.storeCtx(ctx)
	ch, err := s.store.Challenges().GetByHash(sctx, s.challengeHash(token))
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return domain.Challenge{}, ErrInvalidChallenge
	}
	if err != nil {
		return domain.Challenge{}, err
	}

	if ch.AccountID != accountID {
		return domain.Challenge{}, ErrInvalidChallenge
	}
	if !now.Before(ch.ExpiresAt) || ch.Attempts >= domain.MaxChallengeAttempts {
		s.dropChallenge(ctx, ch.ID)
		return domain.Challenge{}, ErrInvalidChallenge
	}
	return ch, nil
}

// claimChallenge loads the challenge and counts this attempt against it
// before any code is checked. The returned count includes this attempt.
func (s *AuthService) claimChallenge(ctx context.Context, accountID, token string, now time.Time) (domain.Challenge, int, error) {
	ch, err := s.loadChallenge(ctx, accountID, token, now)
	if err != nil {
		return domain.Challenge{}, 0, err
	}

	sctx, cancel := s.storeCtx(ctx)
	attempts, err := s.store.Challenges().IncrementAttempts(sctx, ch.ID)
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return domain.Challenge{}, 0, ErrInvalidChallenge
	}
	if err != nil {
		return domain.Challenge{}, 0, fmt.Errorf("count challenge attempt: %w", err)
	}
	if attempts > domain.MaxChallengeAttempts {
		s.dropChallenge(ctx, ch.ID)
		return domain.Challenge{}, 0, ErrInvalidChallenge
	}
	return ch, attempts, nil
}

func (s *AuthService) dropChallenge(ctx context.Context, id string) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.Challenges().Delete(sctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("failed to delete challenge", slog.Any("error", err))
	}
}

func (s *AuthService) challengeHash(token string) string {
	return s.fingerprint("challenge:" + token)
}

// checkSecondFactor returns the method that accepted code, or "" when
// nothing did. Errors are faults, not wrong codes.
func (s *AuthService) checkSecondFactor(ctx context.Context, a *domain.Account, code string, origin domain.Origin, now time.Time) (string, error) {
	code = strings.TrimSpace(code)
	if isTOTPCode(code) {
		ok, err := s.verifyTOTP(ctx, a, code, now)
		if err != nil || !ok {
			return "", err
		}
		return methodTOTP, nil
	}

	ok, remaining, err := s.consumeBackupCode(ctx, a.ID, code, now)
	if err != nil || !ok {
		return "", err
	}
	s.emit(ctx, domain.NewAuditEvent(domain.ActionBackupCodeUsed, domain.StatusSuccess, a.ID, origin, now).
		With("remaining", strconv.Itoa(remaining)))
	return methodBackupCode, nil
}

// verifyTOTP accepts the current step and one step either side, then
// records the matched step so the same code cannot be replayed.
func (s *AuthService) verifyTOTP(ctx context.Context, a *domain.Account, code string, now time.Time) (bool, error) {
	if a.TwoFactorSecret == nil {
		return false, nil
	}
	secret, err := s.totpBox.Open(*a.TwoFactorSecret, a.ID)
	if err != nil {
		return false, fmt.Errorf("open two-factor secret: %w", err)
	}

	step, ok, err := matchTOTP(secret, code, now)
	if err != nil || !ok {
		return false, err
	}
	if step <= a.LastTOTPStep {
		return false, nil
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	advanced, err := s.store.Accounts().AdvanceTOTPStep(sctx, a.ID, step)
	if err != nil {
		return false, err
	}
	if advanced {
		a.LastTOTPStep = step
	}
	return advanced, nil
}

// matchTOTP compares code against every step in the drift window without
// stopping early, and returns the latest matching step.
func matchTOTP(secret, code string, now time.Time) (int64, bool, error) {
	current := now.Unix() / totpPeriod
	var (
		matched int64
		found   bool
	)
	for d := int64(-1); d <= 1; d++ {
		step := current + d
		want, err := totp.GenerateCodeCustom(secret, time.Unix(step*totpPeriod, 0).UTC(), totpOpts)
		if err != nil {
			return 0, false, fmt.Errorf("generate totp: %w", err)
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			matched, found = step, true
		}
	}
	return matched, found, nil
}

func isTOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// consumeBackupCode marks the matching unused code as used. The conditional
// update in the store decides concurrent uses of the same code.
func (s *AuthService) consumeBackupCode(ctx context.Context, accountID, code string, now time.Time) (bool, int, error) {
	code = cryptox.NormalizeBackupCode(code)
	if code == "" {
		return false, 0, nil
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	codes, err := s.store.BackupCodes().ListUnused(sctx, accountID)
	if err != nil {
		return false, 0, err
	}
	for _, bc := range codes {
		if s.hasher.Verify(code, bc.CodeHash) != nil {
			continue
		}
		ok, err := s.store.BackupCodes().Consume(sctx, bc.ID, now)
		if err != nil || !ok {
			return false, 0, err
		}
		return true, len(codes) - 1, nil
	}
	return false, 0, nil
}
