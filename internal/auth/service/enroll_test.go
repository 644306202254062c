package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestEnrollAndConfirmTOTP(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	ctx := context.Background()

	_, err := h.svc.ConfirmTOTP(ctx, a.ID, "123456", testOrigin)
	require.ErrorIs(t, err, ErrTwoFactorNotEnrolled)

	enr, err := h.svc.EnrollTOTP(ctx, a.ID, testOrigin)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.Contains(t, enr.OTPAuthURL, "otpauth://totp/")
	require.Equal(t, "adminauth", enr.Issuer)
	require.Equal(t, a.Email, enr.Account)

	stored, err := h.store.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TwoFactorSecret)
	require.NotEqual(t, enr.Secret, *stored.TwoFactorSecret, "secret is sealed at rest")
	require.False(t, stored.TwoFactorEnabled)

	// Pending enrollment does not gate login yet.
	h.login(t, a.Email)

	code := h.totp(t, enr.Secret)
	_, err = h.svc.ConfirmTOTP(ctx, a.ID, wrongCode(code), testOrigin)
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	codes, err := h.svc.ConfirmTOTP(ctx, a.ID, code, testOrigin)
	require.NoError(t, err)
	require.Len(t, codes, BackupCodeCount)
	seen := map[string]bool{}
	for _, c := range codes {
		require.Regexp(t, `^[a-z2-7]{5}-[a-z2-7]{5}$`, c)
		require.False(t, seen[c])
		seen[c] = true
	}

	stored, err = h.store.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, stored.TwoFactorEnabled)

	_, err = h.svc.ConfirmTOTP(ctx, a.ID, code, testOrigin)
	require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)
	_, err = h.svc.EnrollTOTP(ctx, a.ID, testOrigin)
	require.ErrorIs(t, err, ErrTwoFactorAlreadyEnabled)

	require.Len(t, h.events.find(domain.ActionTwoFactorConfirm, domain.StatusSuccess), 1)
	require.Len(t, h.events.find(domain.ActionTwoFactorConfirm, domain.StatusFailure), 1)
}

func TestRegenerateBackupCodes(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	ctx := context.Background()

	_, err := h.svc.RegenerateBackupCodes(ctx, a.ID, "123456", testOrigin)
	require.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	secret, old := h.enableTwoFactor(t, a.ID)

	_, err = h.svc.RegenerateBackupCodes(ctx, a.ID, "not-a-code", testOrigin)
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)

	fresh, err := h.svc.RegenerateBackupCodes(ctx, a.ID, h.totp(t, secret), testOrigin)
	require.NoError(t, err)
	require.Len(t, fresh, BackupCodeCount)

	_, err = h.svc.VerifyTwoFactor(ctx, a.ID, old[0], h.challenge(t, a.Email), testOrigin)
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode, "old codes are gone")

	_, err = h.svc.VerifyTwoFactor(ctx, a.ID, fresh[0], h.challenge(t, a.Email), testOrigin)
	require.NoError(t, err)
}

func TestDisableTOTP(t *testing.T) {
	h := newHarness(t)
	a := h.seedAccount(t, "a@x.com", domain.RoleAdmin)
	ctx := context.Background()

	require.ErrorIs(t, h.svc.DisableTOTP(ctx, a.ID, "123456", testOrigin), ErrTwoFactorNotEnabled)

	secret, _ := h.enableTwoFactor(t, a.ID)
	code := h.totp(t, secret)
	require.ErrorIs(t, h.svc.DisableTOTP(ctx, a.ID, wrongCode(code), testOrigin), ErrInvalidTwoFactorCode)
	require.NoError(t, h.svc.DisableTOTP(ctx, a.ID, code, testOrigin))

	stored, err := h.store.Accounts().GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, stored.TwoFactorEnabled)
	require.Nil(t, stored.TwoFactorSecret)

	n, err := h.store.BackupCodes().CountUnused(ctx, a.ID)
	require.NoError(t, err)
	require.Zero(t, n)

	// Password alone is enough again.
	h.clock.Advance(time.Minute)
	h.login(t, a.Email)
}
