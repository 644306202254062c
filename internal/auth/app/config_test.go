package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func prodEnv() map[string]string {
	return map[string]string{
		"ENV":                       "prod",
		"AUTH_ACCESS_TOKEN_SECRET":  strings.Repeat("a", 32),
		"AUTH_REFRESH_TOKEN_SECRET": strings.Repeat("r", 32),
		"AUTH_COOKIE_SECRET":        strings.Repeat("c", 32),
		"AUTH_TWO_FACTOR_KEY":       strings.Repeat("t", 32),
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envOf(nil))
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 5, cfg.LoginPolicy.MaxAttempts)
	require.Equal(t, 15*time.Minute, cfg.LoginPolicy.Window)
	require.Equal(t, 10*time.Second, cfg.ReuseGracePeriod)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
	require.NotEmpty(t, cfg.DatabaseDSN)
	require.Equal(t, httpx.StrictLimit, cfg.StrictLimit)
	require.False(t, cfg.CookieSecure)

	// Missing secrets are generated and reported.
	require.Len(t, cfg.AccessTokenSecret, 32)
	require.NotEqual(t, cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	require.Len(t, cfg.Warnings, 4)
}

func TestLoadConfigOverrides(t *testing.T) {
	env := prodEnv()
	env["PORT"] = "9090"
	env["AUTH_LOGIN_MAX_ATTEMPTS"] = "3"
	env["AUTH_LOGIN_WINDOW"] = "1m"
	env["AUTH_DATABASE_DRIVER"] = "postgres"
	env["AUTH_DATABASE_DSN"] = "postgres://localhost/adminauth"
	env["AUTH_AUDIT_KAFKA_BROKERS"] = "k1:9092, k2:9092,"
	env["RATELIMIT_STRICT_REQUESTS"] = "2"

	cfg, err := loadConfig(envOf(env))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 3, cfg.LoginPolicy.MaxAttempts)
	require.Equal(t, time.Minute, cfg.LoginPolicy.Window)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.CookieSecure, "production forces secure cookies")
	require.Empty(t, cfg.Warnings)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		problem string
	}{
		{"missing prod secret", func(m map[string]string) { delete(m, "AUTH_COOKIE_SECRET") }, "AUTH_COOKIE_SECRET is required"},
		{"short secret", func(m map[string]string) { m["AUTH_ACCESS_TOKEN_SECRET"] = "short" }, "at least 32 bytes"},
		{"insecure secret", func(m map[string]string) {
			m["AUTH_TWO_FACTOR_KEY"] = "0123456789abcdef0123456789abcdef"
		}, "known insecure"},
		{"reused secret", func(m map[string]string) { m["AUTH_COOKIE_SECRET"] = m["AUTH_ACCESS_TOKEN_SECRET"] }, "must differ"},
		{"bad duration", func(m map[string]string) { m["AUTH_CHALLENGE_TTL"] = "soon" }, "not a duration"},
		{"bad integer", func(m map[string]string) { m["PORT"] = "http" }, "not an integer"},
		{"ttl order", func(m map[string]string) { m["AUTH_ACCESS_TOKEN_TTL"] = "200h" }, "shorter than"},
		{"zero attempts", func(m map[string]string) { m["AUTH_TWO_FACTOR_MAX_ATTEMPTS"] = "0" }, "at least 1"},
		{"unknown driver", func(m map[string]string) { m["AUTH_DATABASE_DRIVER"] = "mysql" }, "not sqlite or postgres"},
		{"postgres without dsn", func(m map[string]string) { m["AUTH_DATABASE_DRIVER"] = "postgres" }, "AUTH_DATABASE_DSN is required"},
		{"weak hash", func(m map[string]string) { m["AUTH_HASH_ITERATIONS"] = "0" }, "iterations"},
		{"half bootstrap", func(m map[string]string) { m["AUTH_BOOTSTRAP_EMAIL"] = "root@example.com" }, "set together"},
		{"unknown env", func(m map[string]string) { m["ENV"] = "prdo" }, `ENV "prdo" is not one of`},
		{"negative hash memory", func(m map[string]string) { m["AUTH_HASH_MEMORY_KIB"] = "-1" }, "AUTH_HASH_MEMORY_KIB: -1 is outside"},
		{"oversized hash memory", func(m map[string]string) { m["AUTH_HASH_MEMORY_KIB"] = "8589934592" }, "AUTH_HASH_MEMORY_KIB"},
		{"wrapping parallelism", func(m map[string]string) { m["AUTH_HASH_PARALLELISM"] = "256" }, "AUTH_HASH_PARALLELISM: 256 is outside"},
		{"bad trusted proxy", func(m map[string]string) { m["AUTH_TRUSTED_PROXIES"] = "10.0.0.0/8, lb.internal" }, "AUTH_TRUSTED_PROXIES"},
		{"zero audit buffer", func(m map[string]string) { m["AUTH_AUDIT_BUFFER"] = "0" }, "AUTH_AUDIT_BUFFER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := prodEnv()
			tt.mutate(env)

			_, err := loadConfig(envOf(env))
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			require.Contains(t, cfgErr.Error(), tt.problem)
		})
	}
}

func TestProductionEnvIsCaseInsensitive(t *testing.T) {
	for _, v := range []string{"PROD", "Production", " prod "} {
		t.Run(v, func(t *testing.T) {
			env := prodEnv()
			env["ENV"] = v
			cfg, err := loadConfig(envOf(env))
			require.NoError(t, err)
			require.True(t, cfg.IsProduction())
			require.True(t, cfg.CookieSecure)
		})
	}

	// Uppercase production without secrets must fail, not fall back to dev.
	_, err := loadConfig(envOf(map[string]string{"ENV": "PROD"}))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Contains(t, cfgErr.Error(), "AUTH_ACCESS_TOKEN_SECRET is required")
}

func TestLoadConfigTrustedProxies(t *testing.T) {
	cfg, err := loadConfig(envOf(map[string]string{"AUTH_TRUSTED_PROXIES": "10.0.0.0/8, 192.0.2.10"}))
	require.NoError(t, err)
	require.Len(t, cfg.TrustedProxies, 2)

	cfg, err = loadConfig(envOf(nil))
	require.NoError(t, err)
	require.Empty(t, cfg.TrustedProxies, "no proxy is trusted by default")
}

func TestLoadConfigCollectsEveryProblem(t *testing.T) {
	_, err := loadConfig(envOf(map[string]string{"ENV": "prod", "PORT": "x"}))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	require.Len(t, cfgErr.Problems, 5, "bad port plus four missing secrets")
}

func TestDevAllowsInsecureSecretWithWarning(t *testing.T) {
	cfg, err := loadConfig(envOf(map[string]string{
		"AUTH_ACCESS_TOKEN_SECRET": "0123456789abcdef0123456789abcdef",
	}))
	require.NoError(t, err)
	require.Contains(t, strings.Join(cfg.Warnings, "\n"), "AUTH_ACCESS_TOKEN_SECRET is a known insecure value")
}
