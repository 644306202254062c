package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/aussiebroadwan/adminauth/pkg/slogx"
)

// writeServiceError maps a service outcome to its response. Anything not
// listed is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var limited *service.RateLimitError
	if errors.As(err, &limited) {
		httpx.WriteRateLimited(w, limited.RetryAfter)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidTwoFactorCode):
		authsdk.ErrInvalidTwoFactorCode.WriteError(w)
	case errors.Is(err, service.ErrInvalidChallenge):
		authsdk.ErrInvalidChallenge.WriteError(w)
	case errors.Is(err, service.ErrTwoFactorNotEnrolled):
		authsdk.ErrTwoFactorNotEnrolled.WriteError(w)
	case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
		authsdk.ErrTwoFactorAlreadyEnabled.WriteError(w)
	case errors.Is(err, service.ErrTwoFactorNotEnabled):
		authsdk.ErrTwoFactorNotEnabled.WriteError(w)
	case errors.Is(err, service.ErrInvalidSession):
		authsdk.ErrInvalidSession.WriteError(w)
	case errors.Is(err, service.ErrCSRFMismatch):
		authsdk.ErrCSRFMismatch.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		authsdk.ErrInvalidToken.WriteError(w)
	case errors.Is(err, service.ErrForbidden):
		authsdk.ErrForbidden.WriteError(w)
	case errors.Is(err, store.ErrNotFound):
		authsdk.ErrNotFound.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// origin captures the request metadata recorded on sessions and audit events.
func origin(r *http.Request) domain.Origin {
	return domain.Origin{
		IP:        httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}

func adminView(a *domain.Account) authsdk.Admin {
	if a == nil {
		return authsdk.Admin{}
	}
	return authsdk.Admin{
		ID:               a.ID,
		Email:            a.Email,
		DisplayName:      a.DisplayName,
		Role:             string(a.Role),
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}

// principal returns the caller set by AuthnMiddleware, writing 401 if absent.
func principal(w http.ResponseWriter, r *http.Request) (httpx.Principal, bool) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok || p.AccountID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return httpx.Principal{}, false
	}
	return p, true
}
