package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/audit"
	"github.com/aussiebroadwan/adminauth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/joho/godotenv"
)

// Secrets are rejected in production if they match one of these,
// case-insensitively.
var insecureSecrets = []string{
	"changeme",
	"change-me",
	"secret",
	"password",
	"development",
	"dev-secret",
	"your-secret-key",
	"insecure",
	"0123456789abcdef0123456789abcdef",
	"00000000000000000000000000000000",
}

// Known ENV values, compared case-insensitively.
var (
	productionEnvs = []string{"prod", "production"}
	knownEnvs      = append([]string{"dev", "development", "test", "staging"}, productionEnvs...)
)

// Upper bounds for the Argon2id work factor.
const (
	maxHashMemoryKiB  = 4 * 1024 * 1024 // 4 GiB
	maxHashIterations = 64
	maxHashThreads    = 255
)

// Config is built once at startup by LoadConfig and never mutated after.
type Config struct {
	Env                  string        // dev, test, staging, prod (default: dev)
	LogLevel             string        // debug, info, warn, error (default: info)
	LogFormat            string        // json, text (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired record sweep (default: 1h)

	Issuer string // iss claim (default: adminauth)

	AccessTokenSecret  []byte
	AccessTokenTTL     time.Duration
	RefreshTokenSecret []byte // keys refresh, anti-forgery and challenge fingerprints
	RefreshTokenTTL    time.Duration
	CookieSecret       []byte
	TwoFactorKey       []byte // seals TOTP secrets at rest

	HashParams     cryptox.Params
	PasswordPepper string

	LoginPolicy      ratelimit.Policy
	TwoFactorPolicy  ratelimit.Policy
	ChallengeTTL     time.Duration
	ReuseGracePeriod time.Duration
	StoreTimeout     time.Duration
	AuditTimeout     time.Duration
	AuditBuffer      int // queued audit events before new ones are dropped

	CookieSecure bool
	CookieDomain string

	// TrustedProxies may set X-Forwarded-For and X-Real-IP. Empty means
	// the connection address is always the client.
	TrustedProxies httpx.TrustedProxies

	DatabaseDriver string // sqlite or postgres
	DatabaseDSN    string

	RedisAddr     string // empty selects the in-process limiter
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string // empty disables the Kafka audit sink
	KafkaTopic   string

	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig
	LenientLimit  httpx.RateLimitConfig

	// BootstrapEmail and BootstrapPassword create the first superadmin
	// when no account with that email exists.
	BootstrapEmail    string
	BootstrapPassword string

	// Warnings collected while loading, logged once the logger exists.
	Warnings []string
}

// IsProduction reports whether the strict production rules apply.
func (c Config) IsProduction() bool { return oneOf(c.Env, productionEnvs) }

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ConfigError lists every invalid setting. It is fatal at startup.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// LoadConfig reads an optional .env file, then the environment, and
// validates the result.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (Config, error) {
	e := &envReader{getenv: getenv}

	cfg := Config{
		Env:                  strings.ToLower(strings.TrimSpace(e.str("ENV", "dev"))),
		LogLevel:             e.str("LOG_LEVEL", "info"),
		LogFormat:            e.str("LOG_FORMAT", "json"),
		Port:                 e.int("PORT", 8080),
		ShutdownGracePeriod:  e.duration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: e.duration("HOUSEKEEPING_INTERVAL", time.Hour),

		Issuer: e.str("AUTH_ISSUER", "adminauth"),

		AccessTokenSecret:  []byte(getenv("AUTH_ACCESS_TOKEN_SECRET")),
		AccessTokenTTL:     e.duration("AUTH_ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenSecret: []byte(getenv("AUTH_REFRESH_TOKEN_SECRET")),
		RefreshTokenTTL:    e.duration("AUTH_REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		CookieSecret:       []byte(getenv("AUTH_COOKIE_SECRET")),
		TwoFactorKey:       []byte(getenv("AUTH_TWO_FACTOR_KEY")),

		HashParams: cryptox.Params{
			Memory:      uint32(e.intRange("AUTH_HASH_MEMORY_KIB", int(cryptox.DefaultParams.Memory), 1, maxHashMemoryKiB)),
			Iterations:  uint32(e.intRange("AUTH_HASH_ITERATIONS", int(cryptox.DefaultParams.Iterations), 1, maxHashIterations)),
			Parallelism: uint8(e.intRange("AUTH_HASH_PARALLELISM", int(cryptox.DefaultParams.Parallelism), 1, maxHashThreads)),
			SaltLength:  cryptox.DefaultParams.SaltLength,
			KeyLength:   cryptox.DefaultParams.KeyLength,
		},
		PasswordPepper: getenv("AUTH_PASSWORD_PEPPER"),

		LoginPolicy: ratelimit.Policy{
			MaxAttempts: e.int("AUTH_LOGIN_MAX_ATTEMPTS", 5),
			Window:      e.duration("AUTH_LOGIN_WINDOW", 15*time.Minute),
		},
		TwoFactorPolicy: ratelimit.Policy{
			MaxAttempts: e.int("AUTH_TWO_FACTOR_MAX_ATTEMPTS", 5),
			Window:      e.duration("AUTH_TWO_FACTOR_WINDOW", 15*time.Minute),
		},
		ChallengeTTL:     e.duration("AUTH_CHALLENGE_TTL", 5*time.Minute),
		ReuseGracePeriod: e.duration("AUTH_REUSE_GRACE_PERIOD", 10*time.Second),
		StoreTimeout:     e.duration("AUTH_STORE_TIMEOUT", 3*time.Second),
		AuditTimeout:     e.duration("AUTH_AUDIT_TIMEOUT", 2*time.Second),
		AuditBuffer:      e.intRange("AUTH_AUDIT_BUFFER", audit.DefaultBuffer, 1, 1_000_000),

		CookieSecure: e.bool("AUTH_COOKIE_SECURE", false),
		CookieDomain: getenv("AUTH_COOKIE_DOMAIN"),

		TrustedProxies: e.proxies("AUTH_TRUSTED_PROXIES"),

		DatabaseDriver: e.str("AUTH_DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    getenv("AUTH_DATABASE_DSN"),

		RedisAddr:     getenv("AUTH_REDIS_ADDR"),
		RedisPassword: getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:       e.int("AUTH_REDIS_DB", 0),

		KafkaBrokers: splitList(getenv("AUTH_AUDIT_KAFKA_BROKERS")),
		KafkaTopic:   e.str("AUTH_AUDIT_KAFKA_TOPIC", "adminauth.audit"),

		StrictLimit:   httpx.ParseRateLimitFromEnv(getenv, "STRICT", httpx.StrictLimit),
		ModerateLimit: httpx.ParseRateLimitFromEnv(getenv, "MODERATE", httpx.ModerateLimit),
		LenientLimit:  httpx.ParseRateLimitFromEnv(getenv, "LENIENT", httpx.LenientLimit),

		BootstrapEmail:    getenv("AUTH_BOOTSTRAP_EMAIL"),
		BootstrapPassword: getenv("AUTH_BOOTSTRAP_PASSWORD"),
	}

	if cfg.DatabaseDriver == "sqlite" && cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "file:adminauth.db?_pragma=journal_mode(WAL)"
	}

	if err := cfg.validate(e.problems); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate applies the startup rules. Outside production missing secrets
// are replaced with random ones, so sessions do not survive a restart.
func (c *Config) validate(problems []string) error {
	if !oneOf(c.Env, knownEnvs) {
		// An unknown value must not quietly select the lax rules.
		problems = append(problems, fmt.Sprintf("ENV %q is not one of %s", c.Env, strings.Join(knownEnvs, ", ")))
	}
	prod := c.IsProduction()

	secrets := []struct {
		env string
		val *[]byte
	}{
		{"AUTH_ACCESS_TOKEN_SECRET", &c.AccessTokenSecret},
		{"AUTH_REFRESH_TOKEN_SECRET", &c.RefreshTokenSecret},
		{"AUTH_COOKIE_SECRET", &c.CookieSecret},
		{"AUTH_TWO_FACTOR_KEY", &c.TwoFactorKey},
	}
	seen := map[string]string{}
	for _, s := range secrets {
		switch {
		case len(*s.val) == 0 && prod:
			problems = append(problems, s.env+" is required")
			continue
		case len(*s.val) == 0:
			*s.val = ephemeralSecret()
			c.Warnings = append(c.Warnings, s.env+" not set, using an ephemeral value")
			continue
		case len(*s.val) < jwtx.MinSecretLength:
			problems = append(problems, fmt.Sprintf("%s must be at least %d bytes", s.env, jwtx.MinSecretLength))
			continue
		}

		if isInsecure(string(*s.val)) {
			if prod {
				problems = append(problems, s.env+" is a known insecure value")
			} else {
				c.Warnings = append(c.Warnings, s.env+" is a known insecure value")
			}
		}
		if other, dup := seen[string(*s.val)]; dup && prod {
			problems = append(problems, s.env+" must differ from "+other)
		}
		seen[string(*s.val)] = s.env
	}

	if prod {
		c.CookieSecure = true
	}

	if err := c.HashParams.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	positive := []struct {
		env string
		val time.Duration
	}{
		{"AUTH_ACCESS_TOKEN_TTL", c.AccessTokenTTL},
		{"AUTH_REFRESH_TOKEN_TTL", c.RefreshTokenTTL},
		{"AUTH_LOGIN_WINDOW", c.LoginPolicy.Window},
		{"AUTH_TWO_FACTOR_WINDOW", c.TwoFactorPolicy.Window},
		{"AUTH_CHALLENGE_TTL", c.ChallengeTTL},
		{"AUTH_STORE_TIMEOUT", c.StoreTimeout},
		{"AUTH_AUDIT_TIMEOUT", c.AuditTimeout},
		{"SHUTDOWN_GRACE_PERIOD", c.ShutdownGracePeriod},
		{"HOUSEKEEPING_INTERVAL", c.HousekeepingInterval},
	}
	for _, p := range positive {
		if p.val <= 0 {
			problems = append(problems, p.env+" must be positive")
		}
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		problems = append(problems, "AUTH_ACCESS_TOKEN_TTL must be shorter than AUTH_REFRESH_TOKEN_TTL")
	}
	if c.LoginPolicy.MaxAttempts < 1 || c.TwoFactorPolicy.MaxAttempts < 1 {
		problems = append(problems, "attempt limits must be at least 1")
	}

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			problems = append(problems, "AUTH_DATABASE_DSN is required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("AUTH_DATABASE_DRIVER %q is not sqlite or postgres", c.DatabaseDriver))
	}

	if (c.BootstrapEmail == "") != (c.BootstrapPassword == "") {
		problems = append(problems, "AUTH_BOOTSTRAP_EMAIL and AUTH_BOOTSTRAP_PASSWORD must be set together")
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func isInsecure(v string) bool {
	for _, bad := range insecureSecrets {
		if strings.EqualFold(v, bad) {
			return true
		}
	}
	return false
}

func ephemeralSecret() []byte {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envReader parses typed variables, collecting malformed values instead
// of falling back to defaults.
type envReader struct {
	getenv   func(string) string
	problems []string
}

func (e *envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

// intRange is int with inclusive bounds, checked before any narrowing
// conversion by the caller.
func (e *envReader) intRange(key string, def, lo, hi int) int {
	n := e.int(key, def)
	if n < lo || n > hi {
		e.problems = append(e.problems, fmt.Sprintf("%s: %d is outside %d..%d", key, n, lo, hi))
		return def
	}
	return n
}

func (e *envReader) proxies(key string) httpx.TrustedProxies {
	tp, err := httpx.ParseTrustedProxies(splitList(e.getenv(key)))
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s: %v", key, err))
		return nil
	}
	return tp
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.problems = append(e.problems, fmt.Sprintf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}
