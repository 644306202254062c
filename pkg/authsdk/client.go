package authsdk

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// SDKClient talks to the admin authentication service. It keeps the
// refresh cookie in its own cookie jar, so one SDKClient represents one
// browser-like client.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client with a fresh cookie jar.
func NewSDKClient(baseURL string) *SDKClient {
	jar, _ := cookiejar.New(nil) // never fails with nil options
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// Login performs the password step. When the account has two-factor
// enabled the returned Session is nil and the LoginResponse carries the
// challenge to pass to VerifyTwoFactor.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, *LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, nil)
	if err != nil {
		return nil, nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	if out.RequiresTwoFactor {
		return nil, &out, nil
	}
	return newSession(c, out.AccessToken, resp.Header.Get(CSRFHeader), out.Admin), &out, nil
}

// VerifyTwoFactor completes a login that required a second factor.
func (c *SDKClient) VerifyTwoFactor(ctx context.Context, challenge *LoginResponse, code string) (*Session, error) {
	req := VerifyTwoFactorRequest{
		AccountID:      challenge.Admin.ID,
		Code:           code,
		ChallengeToken: challenge.ChallengeToken,
	}
	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/verify-2fa", req, nil)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, out.AccessToken, resp.Header.Get(CSRFHeader), out.Admin), nil
}

// Resume rebuilds a session from the refresh cookie already held in the
// client's jar, as a browser does after a page reload. csrfToken is the
// anti-forgery token saved from the last issuance.
func (c *SDKClient) Resume(ctx context.Context, csrfToken string) (*Session, error) {
	s := newSession(c, "", csrfToken, Admin{})
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
