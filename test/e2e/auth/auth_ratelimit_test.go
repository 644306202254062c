//go:build e2e

package auth_test

import (
	"errors"
	"testing"

	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLoginAttemptLimit uses the production attempt limit (5 per window)
// with relaxed per-IP limits, so only the account limiter trips.
func TestLoginAttemptLimit(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, relaxedLimits))

	for i := range 5 {
		_, _, err := client.Login(t.Context(), adminEmail, "wrong")
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "attempt %d", i+1)
	}

	// Even the right password is refused until the window passes.
	_, _, err := client.Login(t.Context(), adminEmail, adminPassword)
	require.ErrorIs(t, err, authsdk.ErrRateLimited)
}

// TestStrictRouteLimit runs with the default per-IP limits.
func TestStrictRouteLimit(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t, map[string]string{
		"AUTH_LOGIN_MAX_ATTEMPTS": "100",
	}))

	var limited bool
	for range 10 {
		_, _, err := client.Login(t.Context(), "nobody@example.com", "wrong")
		if errors.Is(err, authsdk.ErrRateLimited) {
			limited = true
			break
		}
	}
	require.True(t, limited, "strict route limit should trip within 10 requests")
}
