package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Session is an authenticated admin session. The access token lives in
// memory; the refresh token stays in the client's cookie jar.
//
// A request rejected with 401 triggers exactly one refresh followed by
// one retry. If the refresh itself is refused, or the retry is rejected
// again, the call fails with ErrReauthenticate.
type Session struct {
	client *SDKClient

	// refreshMu serializes refreshes so concurrent 401s rotate once.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	accessToken string
	csrfToken   string
	admin       Admin
}

func newSession(client *SDKClient, accessToken, csrfToken string, admin Admin) *Session {
	return &Session{
		client:      client,
		accessToken: accessToken,
		csrfToken:   csrfToken,
		admin:       admin,
	}
}

// AccessToken returns the current bearer token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// CSRFToken returns the anti-forgery token bound to the current refresh
// cookie. Persist it alongside the cookie to Resume later.
func (s *Session) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrfToken
}

// Admin returns the account as of the last issuance or verification.
func (s *Session) Admin() Admin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// Refresh rotates the refresh cookie and replaces the access token.
func (s *Session) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshAfter refreshes unless another caller already replaced stale.
func (s *Session) refreshAfter(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if s.AccessToken() != stale {
		return nil
	}
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/auth/refresh", nil, map[string]string{
		CSRFHeader: s.CSRFToken(),
	})
	if err != nil {
		return err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %w", ErrReauthenticate, err)
		}
		return err
	}

	s.mu.Lock()
	s.accessToken = out.AccessToken
	s.csrfToken = resp.Header.Get(CSRFHeader)
	s.admin = out.Admin
	s.mu.Unlock()
	return nil
}

// do sends an authenticated JSON request and decodes the response into
// target, refreshing and retrying once on 401.
func (s *Session) do(ctx context.Context, method, path string, payload, target any, expectedStatus int) error {
	token := s.AccessToken()
	resp, err := s.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := s.refreshAfter(ctx, token); err != nil {
			return err
		}
		resp, err = s.send(ctx, method, path, payload, s.AccessToken())
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrReauthenticate, decodeJSON(resp, nil, http.StatusOK))
		}
	}

	return decodeJSON(resp, target, expectedStatus)
}

func (s *Session) send(ctx context.Context, method, path string, payload any, token string) (*http.Response, error) {
	headers := map[string]string{"Authorization": "Bearer " + token}
	return s.client.doJSON(ctx, method, path, payload, headers)
}

// ============================================================================
// Session Operations
// ============================================================================

// Verify asks the server whether the access token is still good and
// refreshes the cached admin view.
func (s *Session) Verify(ctx context.Context) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := s.do(ctx, http.MethodPost, "/auth/verify", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	if out.Admin != nil {
		s.mu.Lock()
		s.admin = *out.Admin
		s.mu.Unlock()
	}
	return &out, nil
}

// Logout revokes the refresh cookie server-side and forgets the tokens.
// It succeeds even when the session was already gone.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.accessToken = ""
	s.csrfToken = ""
	s.mu.Unlock()
	return nil
}

// RevokeAllSessions ends every session of the account, this one included.
func (s *Session) RevokeAllSessions(ctx context.Context) (int64, error) {
	var out RevokeAllResponse
	if err := s.do(ctx, http.MethodPost, "/auth/sessions/revoke-all", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}

// EnrollTOTP starts two-factor enrollment.
func (s *Session) EnrollTOTP(ctx context.Context) (*EnrollResponse, error) {
	var out EnrollResponse
	if err := s.do(ctx, http.MethodPost, "/auth/2fa/enroll", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmTOTP enables two-factor and returns the initial backup codes.
func (s *Session) ConfirmTOTP(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := s.do(ctx, http.MethodPost, "/auth/2fa/confirm", CodeRequest{Code: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

// RegenerateBackupCodes replaces all backup codes.
func (s *Session) RegenerateBackupCodes(ctx context.Context, code string) ([]string, error) {
	var out BackupCodesResponse
	if err := s.do(ctx, http.MethodPost, "/auth/2fa/backup-codes", CodeRequest{Code: code}, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

// DisableTOTP turns two-factor off.
func (s *Session) DisableTOTP(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodDelete, "/auth/2fa", CodeRequest{Code: code}, nil, http.StatusNoContent)
}

// DeactivateAccount deactivates another account. Requires superadmin.
func (s *Session) DeactivateAccount(ctx context.Context, accountID string) error {
	return s.do(ctx, http.MethodPost, "/auth/accounts/"+accountID+"/deactivate", nil, nil, http.StatusNoContent)
}
