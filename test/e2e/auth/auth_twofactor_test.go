//go:build e2e

package auth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorLogin(t *testing.T) {
	baseURL := setupAuthContainer(t, relaxedLimits)
	_, session := loginAdmin(t, baseURL)

	enr, err := session.EnrollTOTP(t.Context())
	require.NoError(t, err)
	require.Contains(t, enr.OTPAuthURL, "otpauth://totp/")

	code, err := totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	backup, err := session.ConfirmTOTP(t.Context(), code)
	require.NoError(t, err)
	require.NotEmpty(t, backup)

	client := authsdk.NewSDKClient(baseURL)
	_, challenge, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)
	require.True(t, challenge.RequiresTwoFactor)
	require.Empty(t, challenge.AccessToken)

	_, err = client.VerifyTwoFactor(t.Context(), challenge, "000000")
	require.ErrorIs(t, err, authsdk.ErrInvalidTwoFactorCode)

	second, err := client.VerifyTwoFactor(t.Context(), challenge, backup[0])
	require.NoError(t, err)
	require.True(t, second.Admin().TwoFactorEnabled)
}
