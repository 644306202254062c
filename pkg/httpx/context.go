package httpx

import (
	"context"

	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
)

type ctxKey string

const (
	CtxKeyAccountID ctxKey = "account_id"
	CtxKeyClaims    ctxKey = "claims"
)

// Principal is the authenticated caller as seen by downstream handlers.
type Principal struct {
	AccountID string
	Role      string
	SessionID string
}

// WithClaims stores verified access-token claims on the context.
func WithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyAccountID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// ClaimsFromContext returns the claims set by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// PrincipalFromContext returns the caller identity, if authenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	return Principal{AccountID: c.Subject, Role: c.Role, SessionID: c.SID}, true
}
