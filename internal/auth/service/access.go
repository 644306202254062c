package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/store"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
)

// VerifyAccess checks an access token's signature and expiry, then loads
// the account it names. Missing and inactive accounts are rejected so a
// deactivated administrator's verify calls stop working at once, even
// though the token itself stays cryptographically valid.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*domain.Account, jwtx.Claims, error) {
	claims, err := s.verifier.Verify(accessToken)
	if err != nil {
		return nil, jwtx.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	account, err := s.getAccount(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !account.Active) {
		return nil, jwtx.Claims{}, ErrInvalidToken
	}
	if err != nil {
		return nil, jwtx.Claims{}, err
	}
	return &account, claims, nil
}

// Authorize reports ErrForbidden unless role is at least min.
func Authorize(role, min domain.Role) error {
	if !role.Satisfies(min) {
		return ErrForbidden
	}
	return nil
}

func (s *AuthService) getAccount(ctx context.Context, id string) (domain.Account, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.store.Accounts().GetByID(sctx, id)
}
