package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"

	_ "github.com/aussiebroadwan/adminauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is a dependency /readyz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteLimits are the per-IP throttles applied in front of each route
// group. They sit outside the per-account attempt limits of the service.
type RouteLimits struct {
	Strict   httpx.RateLimitConfig // login and second factor
	Moderate httpx.RateLimitConfig // session and two-factor management
	Lenient  httpx.RateLimitConfig // verify and health
}

// DefaultRouteLimits returns the httpx presets.
func DefaultRouteLimits() RouteLimits {
	return RouteLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	auth         *service.AuthService
	verifier     jwtx.Verifier
	cookies      *httpx.CookieJar
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Limiter, when set, is probed by /readyz.
	Limiter Pinger
	// Metrics, when set, is served on GET /metrics.
	Metrics http.Handler
	Limits  RouteLimits
	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies httpx.TrustedProxies
}

func NewRouter(
	auth *service.AuthService,
	verifier jwtx.Verifier,
	cookies *httpx.CookieJar,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		auth:         auth,
		verifier:     verifier,
		cookies:      cookies,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultRouteLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.middlewares = append(r.middlewares, httpx.ClientIPMiddleware(r.TrustedProxies))

	r.registerSession()
	r.registerTwoFactor()
	r.registerAccounts()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Admin Authentication Service API
//	@version		0.1.0
//	@description	Password login with optional TOTP second factor for the admin console.
//	@description
//	@description				Access tokens are short-lived HS256 JWTs sent as bearer tokens. Refresh tokens
//	@description				live in an HTTP-only cookie scoped to /auth and rotate on every use; the
//	@description				matching anti-forgery token travels in the X-CSRF-Token header.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/adminauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Auth: r.auth, Cookies: r.cookies}

	// Credential endpoints - strict per-IP throttle on top of the
	// per-account attempt limiter inside the service.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /auth/verify-2fa",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyTwoFactor),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	// Verify loads the account, so it checks the token itself.
	r.Mux.Handle("POST /auth/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)

	r.Mux.Handle("POST /auth/sessions/revoke-all",
		httpx.Chain(http.HandlerFunc(h.HandleRevokeAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{Auth: r.auth}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(r.Limits.Moderate),
		)
	}

	r.Mux.Handle("POST /auth/2fa/enroll", secured(h.HandleEnroll))
	r.Mux.Handle("POST /auth/2fa/confirm", secured(h.HandleConfirm))
	r.Mux.Handle("POST /auth/2fa/backup-codes", secured(h.HandleRegenerate))
	r.Mux.Handle("DELETE /auth/2fa", secured(h.HandleDisable))
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{Auth: r.auth}

	r.Mux.Handle("POST /auth/accounts/{id}/deactivate",
		httpx.Chain(http.HandlerFunc(h.HandleDeactivate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RequireRole(domain.AtLeast(domain.RoleSuperAdmin)),
			httpx.RateLimitByAccount(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Limiter),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
