// Package service implements the admin authentication and session
// lifecycle: password login, second factor, token issuance, refresh
// rotation, logout and the anti-forgery binding.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/audit"
	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/ratelimit"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultChallengeTTL     = 5 * time.Minute
	DefaultReuseGracePeriod = 10 * time.Second
	DefaultStoreTimeout     = 3 * time.Second
)

// Deps are the collaborators of AuthService.
type Deps struct {
	Store    store.Store
	Hasher   *cryptox.Hasher
	Signer   jwtx.Signer
	Verifier jwtx.Verifier

	// TOTPBox seals two-factor secrets at rest.
	TOTPBox *cryptox.SecretBox

	LoginLimiter     ratelimit.Limiter
	TwoFactorLimiter ratelimit.Limiter

	Audit *audit.Emitter
}

// Options tune AuthService.
type Options struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	ChallengeTTL time.Duration
	// ReuseGracePeriod is how long after a rotation a replay of the old
	// token is treated as a benign race rather than theft.
	ReuseGracePeriod time.Duration
	StoreTimeout     time.Duration

	// RefreshKey keys the fingerprints of refresh tokens, anti-forgery
	// tokens and challenge tokens.
	RefreshKey []byte

	Now func() time.Time
}

// AuthService is the authentication core. It is safe for concurrent use.
type AuthService struct {
	store    store.Store
	hasher   *cryptox.Hasher
	verifier jwtx.Verifier
	totpBox  *cryptox.SecretBox

	tokens *TokenIssuer
	csrf   *CSRFCoordinator

	loginLimiter     ratelimit.Limiter
	twoFactorLimiter ratelimit.Limiter
	audit            *audit.Emitter

	issuer       string
	challengeTTL time.Duration
	reuseGrace   time.Duration
	storeTimeout time.Duration
	refreshKey   []byte
	now          func() time.Time

	// dummyHash is verified against when the email is unknown so that
	// lookups for missing accounts cost the same as wrong passwords.
	dummyHash string
}

// New wires an AuthService.
func New(d Deps, o Options) (*AuthService, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("service: store is required")
	case d.Hasher == nil:
		return nil, errors.New("service: hasher is required")
	case d.Signer == nil || d.Verifier == nil:
		return nil, errors.New("service: signer and verifier are required")
	case d.TOTPBox == nil:
		return nil, errors.New("service: totp box is required")
	case d.LoginLimiter == nil || d.TwoFactorLimiter == nil:
		return nil, errors.New("service: limiters are required")
	case len(o.RefreshKey) < jwtx.MinSecretLength:
		return nil, errors.New("service: refresh key too short")
	}

	if o.AccessTTL <= 0 {
		o.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if o.ChallengeTTL <= 0 {
		o.ChallengeTTL = DefaultChallengeTTL
	}
	if o.ReuseGracePeriod <= 0 {
		o.ReuseGracePeriod = DefaultReuseGracePeriod
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	dummy, err := d.Hasher.Hash(cryptox.MustGenerateToken(cryptox.TokenSize128))
	if err != nil {
		return nil, fmt.Errorf("service: prepare dummy hash: %w", err)
	}

	csrf := NewCSRFCoordinator(o.RefreshKey)
	return &AuthService{
		store:            d.Store,
		hasher:           d.Hasher,
		verifier:         d.Verifier,
		totpBox:          d.TOTPBox,
		tokens:           NewTokenIssuer(d.Signer, o.Issuer, o.AccessTTL, o.RefreshTTL, o.RefreshKey, csrf),
		csrf:             csrf,
		loginLimiter:     d.LoginLimiter,
		twoFactorLimiter: d.TwoFactorLimiter,
		audit:            d.Audit,
		issuer:           o.Issuer,
		challengeTTL:     o.ChallengeTTL,
		reuseGrace:       o.ReuseGracePeriod,
		storeTimeout:     o.StoreTimeout,
		refreshKey:       o.RefreshKey,
		now:              o.Now,
		dummyHash:        dummy,
	}, nil
}

// RefreshTTL is the lifetime of refresh tokens, used for the cookie max-age.
func (s *AuthService) RefreshTTL() time.Duration { return s.tokens.RefreshTTL }

// storeCtx bounds a store call.
func (s *AuthService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *AuthService) emit(ctx context.Context, e domain.AuditEvent) {
	s.audit.Emit(ctx, e)
}

// reserveAttempt counts an attempt against keys before any credential is
// checked, so a concurrent burst cannot outrun the budget. A limiter outage
// is logged and the attempt is let through; the HTTP throttle still bounds
// the request rate.
func (s *AuthService) reserveAttempt(ctx context.Context, l ratelimit.Limiter, keys []string) error {
	retry, err := l.Reserve(ctx, keys...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimited):
		return &RateLimitError{RetryAfter: retry}
	default:
		slogx.FromContext(ctx).Warn("attempt limiter unavailable", slog.Any("error", err))
		return nil
	}
}

// releaseAttempt refunds a reservation that did not end in a failed attempt.
func (s *AuthService) releaseAttempt(ctx context.Context, l ratelimit.Limiter, keys []string) {
	if err := l.Release(ctx, keys...); err != nil {
		slogx.FromContext(ctx).Warn("failed to release attempt", slog.Any("error", err))
	}
}

func (s *AuthService) resetLimit(ctx context.Context, l ratelimit.Limiter, keys []string) {
	if err := l.Reset(ctx, keys...); err != nil {
		slogx.FromContext(ctx).Warn("failed to reset attempts", slog.Any("error", err))
	}
}

func (s *AuthService) fingerprint(token string) string {
	return cryptox.KeyedFingerprint(s.refreshKey, token)
}
