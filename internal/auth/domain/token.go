package domain

import "time"

// Refresh token revocation reasons.
const (
	RevokeRotated       = "rotated"
	RevokeLogout        = "logout"
	RevokeReuseDetected = "reuse_detected"
	RevokeAll           = "revoke_all"
)

// RefreshToken models the stored refresh token record. Only fingerprints of
// the bearer secret and the anti-forgery token are persisted.
type RefreshToken struct {
	ID        string
	AccountID string
	ChainID   string // rotation chain; constant across refreshes of one login
	TokenHash string // keyed fingerprint of the opaque secret
	CSRFHash  string // keyed fingerprint of the bound anti-forgery token
	AMR       []string
	IP        string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time

	Revoked       bool
	RevokedAt     *time.Time
	RevokedReason string
	ReplacedBy    string
}

// Usable reports whether the record can still be exchanged at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// Session is what issuance and rotation hand back to the transport layer.
// RefreshToken and CSRFToken are plaintext and must only go to the client.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	CSRFToken        string
	RecordID         string
	ChainID          string
	Account          *Account
}

// Origin is request metadata captured for sessions and audit events.
type Origin struct {
	IP        string
	UserAgent string
}
