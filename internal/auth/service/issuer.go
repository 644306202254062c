package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
	"github.com/aussiebroadwan/adminauth/pkg/idx"
	"github.com/aussiebroadwan/adminauth/pkg/jwtx"
)

// TokenIssuer mints access tokens and refresh records. It does not touch
// the store: callers persist the returned record, inside a transaction
// when rotating.
type TokenIssuer struct {
	Signer     jwtx.Signer
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	key  []byte
	csrf *CSRFCoordinator
}

func NewTokenIssuer(signer jwtx.Signer, issuer string, accessTTL, refreshTTL time.Duration, key []byte, csrf *CSRFCoordinator) *TokenIssuer {
	return &TokenIssuer{
		Signer:     signer,
		Issuer:     issuer,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		key:        key,
		csrf:       csrf,
	}
}

// Mint builds a session for a in chainID. The returned record holds only
// fingerprints; the session holds the plaintext secrets for the client.
func (ti *TokenIssuer) Mint(a *domain.Account, chainID string, amr []string, origin domain.Origin, now time.Time) (*domain.Session, domain.RefreshToken, error) {
	refreshSecret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, domain.RefreshToken{}, err
	}
	csrfToken, csrfBinding, err := ti.csrf.Issue()
	if err != nil {
		return nil, domain.RefreshToken{}, err
	}

	record := domain.RefreshToken{
		ID:        idx.NewAt(now).String(),
		AccountID: a.ID,
		ChainID:   chainID,
		TokenHash: ti.RefreshHash(refreshSecret),
		CSRFHash:  csrfBinding,
		AMR:       amr,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		ExpiresAt: now.Add(ti.RefreshTTL),
		CreatedAt: now,
	}

	claims := jwtx.NewAccessClaims(a.ID, string(a.Role), chainID, amr, ti.AccessTTL, ti.Issuer, now)
	access, err := ti.Signer.Sign(claims)
	if err != nil {
		return nil, domain.RefreshToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.Session{
		AccessToken:      access,
		AccessExpiresAt:  claims.ExpiresAt.Time,
		RefreshToken:     refreshSecret,
		RefreshExpiresAt: record.ExpiresAt,
		CSRFToken:        csrfToken,
		RecordID:         record.ID,
		ChainID:          chainID,
		Account:          a,
	}, record, nil
}

// RefreshHash is the stored fingerprint of a refresh secret.
func (ti *TokenIssuer) RefreshHash(secret string) string {
	return cryptox.KeyedFingerprint(ti.key, secret)
}
