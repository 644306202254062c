package service

import (
	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
)

// CSRFCoordinator issues anti-forgery tokens bound to a refresh record.
// Only the keyed fingerprint is stored on the record; the plaintext goes
// to the client in a response header.
type CSRFCoordinator struct {
	key []byte
}

func NewCSRFCoordinator(key []byte) *CSRFCoordinator {
	return &CSRFCoordinator{key: key}
}

// Issue returns a fresh token and the fingerprint to bind to the session.
func (c *CSRFCoordinator) Issue() (token, binding string, err error) {
	token, err = cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", "", err
	}
	return token, c.bind(token), nil
}

// Verify checks presented against the session's binding. An empty binding
// (revoked session) never matches.
func (c *CSRFCoordinator) Verify(presented, binding string) error {
	if presented == "" || !cryptox.EqualFingerprints(c.bind(presented), binding) {
		return ErrCSRFMismatch
	}
	return nil
}

func (c *CSRFCoordinator) bind(token string) string {
	return cryptox.KeyedFingerprint(c.key, "csrf:"+token)
}
