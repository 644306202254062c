package httpx

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/adminauth/pkg/cryptox"
)

// ErrBadCookie is returned for a missing, malformed or forged cookie.
var ErrBadCookie = errors.New("httpx: invalid cookie")

// CookieJar writes and reads one HMAC-signed, HTTP-only cookie.
type CookieJar struct {
	Name   string
	Path   string
	Domain string
	Secure bool
	MaxAge time.Duration

	key []byte
}

// NewCookieJar returns a jar signing values with key.
func NewCookieJar(key []byte, name, path, domain string, secure bool, maxAge time.Duration) *CookieJar {
	k := make([]byte, len(key))
	copy(k, key)
	return &CookieJar{Name: name, Path: path, Domain: domain, Secure: secure, MaxAge: maxAge, key: k}
}

// Set writes value, signed, as the cookie.
func (j *CookieJar) Set(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.Name,
		Value:    value + "." + cryptox.KeyedFingerprint(j.key, value),
		Path:     j.Path,
		Domain:   j.Domain,
		MaxAge:   int(j.MaxAge.Seconds()),
		Expires:  time.Now().Add(j.MaxAge),
		Secure:   j.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the cookie on the client.
func (j *CookieJar) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     j.Name,
		Value:    "",
		Path:     j.Path,
		Domain:   j.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   j.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// Get returns the verified cookie value.
func (j *CookieJar) Get(r *http.Request) (string, error) {
	c, err := r.Cookie(j.Name)
	if err != nil {
		return "", ErrBadCookie
	}
	i := strings.LastIndexByte(c.Value, '.')
	if i <= 0 {
		return "", ErrBadCookie
	}
	value, sig := c.Value[:i], c.Value[i+1:]
	if !cryptox.EqualFingerprints(sig, cryptox.KeyedFingerprint(j.key, value)) {
		return "", ErrBadCookie
	}
	return value, nil
}
