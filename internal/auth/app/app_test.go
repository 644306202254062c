package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, redisAddr string) Config {
	t.Helper()
	cfg, err := loadConfig(envOf(map[string]string{
		"LOG_LEVEL":               "error",
		"PORT":                    "0",
		"AUTH_DATABASE_DSN":       ":memory:",
		"AUTH_REDIS_ADDR":         redisAddr,
		"AUTH_HASH_MEMORY_KIB":    "1024",
		"AUTH_HASH_ITERATIONS":    "1",
		"AUTH_BOOTSTRAP_EMAIL":    "root@example.com",
		"AUTH_BOOTSTRAP_PASSWORD": "correct horse battery staple",
	}))
	require.NoError(t, err)
	return cfg
}

func TestApplicationRunBootstrapsAndStops(t *testing.T) {
	mr := miniredis.RunT(t)
	application, err := New(testConfig(t, mr.Addr()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	require.Eventually(t, func() bool {
		a, err := application.db.Accounts().GetByEmail(context.Background(), "root@example.com")
		return err == nil && a.Role == domain.RoleSuperAdmin
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApplicationReadiness(t *testing.T) {
	mr := miniredis.RunT(t)
	application, err := New(testConfig(t, mr.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.closeAll() })

	srv := httptest.NewServer(application.router)
	t.Cleanup(srv.Close)

	health := func() (int, authsdk.HealthResponse) {
		resp, err := http.Get(srv.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body authsdk.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return resp.StatusCode, body
	}

	status, body := health()
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body.Checks.Limiter)

	// The limiter fails open, so losing redis degrades without failing.
	mr.Close()
	status, body = health()
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "degraded", body.Status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApplicationWithoutRedis(t *testing.T) {
	application, err := New(testConfig(t, ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.closeAll() })

	require.Nil(t, application.redis)
	require.Nil(t, application.router.Limiter)
}
