package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// BackupCodeCount is how many backup codes an account holds.
const BackupCodeCount = 10

// EnrollTOTP generates a TOTP secret for the account and stores it sealed.
// Two-factor is not enabled until ConfirmTOTP succeeds; enrolling again
// before that replaces the pending secret.
func (s *AuthService) EnrollTOTP(ctx context.Context, accountID string, origin domain.Origin) (domain.Enrollment, error) {
	now := s.now()
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if account.TwoFactorEnabled {
		return domain.Enrollment{}, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: account.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	sealed, err := s.totpBox.Seal(key.Secret(), account.ID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to seal TOTP secret: %w", err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.Accounts().SetTwoFactorSecret(sctx, account.ID, sealed, now); err != nil {
		return domain.Enrollment{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorEnroll, domain.StatusSuccess, account.ID, origin, now))
	return domain.Enrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		Issuer:     s.issuer,
		Account:    account.Email,
	}, nil
}

// ConfirmTOTP checks the first code from the authenticator, enables
// two-factor and returns a fresh set of backup codes. The codes are only
// ever returned here and from RegenerateBackupCodes.
func (s *AuthService) ConfirmTOTP(ctx context.Context, accountID, code string, origin domain.Origin) ([]string, error) {
	now := s.now()
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}
	if account.TwoFactorSecret == nil {
		return nil, ErrTwoFactorNotEnrolled
	}

	if err := s.requireTOTP(ctx, &account, code, domain.ActionTwoFactorConfirm, origin); err != nil {
		return nil, err
	}

	codes, hashes, err := s.newBackupCodes()
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.store.WithTx(sctx, func(tx store.Tx) error {
		if err := tx.Accounts().EnableTwoFactor(sctx, account.ID, now); err != nil {
			return err
		}
		return tx.BackupCodes().ReplaceAll(sctx, account.ID, hashes, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enable two-factor: %w", err)
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorConfirm, domain.StatusSuccess, account.ID, origin, now))
	return codes, nil
}

// RegenerateBackupCodes replaces every backup code. A current TOTP code is
// required.
func (s *AuthService) RegenerateBackupCodes(ctx context.Context, accountID, code string, origin domain.Origin) ([]string, error) {
	now := s.now()
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}
	if err := s.requireTOTP(ctx, &account, code, domain.ActionBackupCodesRegen, origin); err != nil {
		return nil, err
	}

	codes, hashes, err := s.newBackupCodes()
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.WithTx(sctx, func(tx store.Tx) error {
		return tx.BackupCodes().ReplaceAll(sctx, account.ID, hashes, now)
	}); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionBackupCodesRegen, domain.StatusSuccess, account.ID, origin, now))
	return codes, nil
}

// DisableTOTP turns two-factor off and drops the secret and backup codes.
// A current TOTP code is required.
func (s *AuthService) DisableTOTP(ctx context.Context, accountID, code string, origin domain.Origin) error {
	now := s.now()
	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}
	if err := s.requireTOTP(ctx, &account, code, domain.ActionTwoFactorDisable, origin); err != nil {
		return err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.WithTx(sctx, func(tx store.Tx) error {
		if err := tx.Accounts().DisableTwoFactor(sctx, account.ID, now); err != nil {
			return err
		}
		return tx.BackupCodes().DeleteAll(sctx, account.ID)
	}); err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}

	s.emit(ctx, domain.NewAuditEvent(domain.ActionTwoFactorDisable, domain.StatusSuccess, account.ID, origin, now))
	return nil
}

// requireTOTP fails with ErrInvalidTwoFactorCode unless code is a fresh
// TOTP for a. Failures are audited under action.
func (s *AuthService) requireTOTP(ctx context.Context, a *domain.Account, code, action string, origin domain.Origin) error {
	code = strings.TrimSpace(code)
	ok := false
	if isTOTPCode(code) {
		var err error
		if ok, err = s.verifyTOTP(ctx, a, code, s.now()); err != nil {
			return err
		}
	}
	if !ok {
		s.emit(ctx, domain.NewAuditEvent(action, domain.StatusFailure, a.ID, origin, s.now()).
			With("reason", "invalid_code"))
		return ErrInvalidTwoFactorCode
	}
	return nil
}

// newBackupCodes returns plaintext codes and their hashes.
func (s *AuthService) newBackupCodes() ([]string, []string, error) {
	codes := make([]string, BackupCodeCount)
	hashes := make([]string, BackupCodeCount)
	for i := range codes {
		code, err := cryptox.GenerateBackupCode()
		if err != nil {
			return nil, nil, err
		}
		hash, err := s.hasher.Hash(cryptox.NormalizeBackupCode(code))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash backup code: %w", err)
		}
		codes[i], hashes[i] = code, hash
	}
	return codes, hashes, nil
}
