package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
)

// SessionHandler serves login, refresh, verification and logout.
type SessionHandler struct {
	Auth    *service.AuthService
	Cookies *httpx.CookieJar
}

// HandleLogin handles POST /auth/login
//
//	@Summary		Log in with email and password
//	@Description	Verifies the password. Accounts without two-factor get a session straight away: the access
//	@Description	token in the body, the refresh token in an HTTP-only cookie and the anti-forgery token in the
//	@Description	X-CSRF-Token header. Accounts with two-factor get requiresTwoFactor and a challenge token instead.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Session issued or second factor required"
//	@Header			200		{string}	X-CSRF-Token			"Anti-forgery token, set when a session is issued"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Too many failed attempts"
//	@Router			/auth/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Email, req.Password, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if res.RequiresTwoFactor {
		httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
			RequiresTwoFactor: true,
			ChallengeToken:    res.ChallengeToken,
			ChallengeExpires:  res.ChallengeExpires.Unix(),
			Admin:             adminView(res.Account),
		})
		return
	}

	h.writeSession(w, res.Session)
}

// HandleVerifyTwoFactor handles POST /auth/verify-2fa
//
//	@Summary		Complete login with a second factor
//	@Description	Accepts a six digit TOTP code or a single-use backup code together with the challenge token
//	@Description	returned by /auth/login. Issues a session exactly like a password-only login.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyTwoFactorRequest	true	"Account, code and challenge"
//	@Success		200		{object}	authsdk.LoginResponse			"Session issued"
//	@Header			200		{string}	X-CSRF-Token					"Anti-forgery token"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse			"Invalid code or challenge"
//	@Failure		429		{object}	authsdk.ErrorResponse			"Too many failed attempts"
//	@Router			/auth/verify-2fa [post].
func (h *SessionHandler) HandleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyTwoFactorRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.AccountID == "" || req.Code == "" || req.ChallengeToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	sess, err := h.Auth.VerifyTwoFactor(r.Context(), req.AccountID, req.Code, req.ChallengeToken, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.writeSession(w, sess)
}

// HandleRefresh handles POST /auth/refresh
//
//	@Summary		Rotate the refresh token
//	@Description	Exchanges the refresh cookie for a new access token and a new refresh cookie. The request must
//	@Description	carry the anti-forgery token from the previous issuance in X-CSRF-Token. Presenting an already
//	@Description	rotated refresh token revokes every session descended from the same login.
//	@Tags			Session
//	@Produce		json
//	@Param			X-CSRF-Token	header		string					true	"Anti-forgery token"
//	@Success		200				{object}	authsdk.RefreshResponse	"Rotated"
//	@Header			200				{string}	X-CSRF-Token			"New anti-forgery token"
//	@Failure		401				{object}	authsdk.ErrorResponse	"Missing, expired, revoked or reused refresh token"
//	@Failure		403				{object}	authsdk.ErrorResponse	"Anti-forgery token mismatch"
//	@Router			/auth/refresh [post].
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	secret, err := h.Cookies.Get(r)
	if err != nil {
		h.Cookies.Clear(w)
		authsdk.ErrInvalidSession.WriteError(w)
		return
	}

	sess, err := h.Auth.Rotate(r.Context(), secret, r.Header.Get(authsdk.CSRFHeader), origin(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidSession) {
			h.Cookies.Clear(w)
		}
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.Set(w, sess.RefreshToken)
	w.Header().Set(authsdk.CSRFHeader, sess.CSRFToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RefreshResponse{
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.AccessExpiresAt.Unix(),
		Admin:       adminView(sess.Account),
	})
}

// HandleVerify handles POST /auth/verify
//
//	@Summary		Verify an access token
//	@Description	Checks the bearer token and that its account still exists and is active.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.VerifyResponse	"Token is valid"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Router			/auth/verify [post].
func (h *SessionHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	raw, ok := httpx.BearerToken(r)
	if !ok {
		writeServiceError(w, r, service.ErrInvalidToken)
		return
	}

	account, _, err := h.Auth.VerifyAccess(r.Context(), raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	view := adminView(account)
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{Valid: true, Admin: &view})
}

// HandleLogout handles POST /auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the refresh cookie, if any, and clears it. A missing or unknown cookie still succeeds.
//	@Description	When the revocation cannot be stored the cookie is kept so the client can retry.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	authsdk.SuccessResponse	"Logged out"
//	@Failure		500	{object}	authsdk.ErrorResponse	"Revocation failed, retry"
//	@Router			/auth/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	secret, _ := h.Cookies.Get(r)

	if err := h.Auth.Logout(r.Context(), secret, origin(r)); err != nil {
		// The refresh record is still live; keep the cookie for the retry.
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.SuccessResponse{Success: true})
}

// HandleRevokeAll handles POST /auth/sessions/revoke-all
//
//	@Summary		Revoke every session of the caller
//	@Description	Revokes all refresh tokens of the authenticated account, including the current one.
//	@Description	Outstanding access tokens stay valid until they expire.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.RevokeAllResponse	"Number of sessions revoked"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Router			/auth/sessions/revoke-all [post].
func (h *SessionHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	n, err := h.Auth.RevokeAllSessions(r.Context(), p.AccountID, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.Cookies.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeAllResponse{Revoked: n})
}

// writeSession hands a fresh session to the client.
func (h *SessionHandler) writeSession(w http.ResponseWriter, sess *domain.Session) {
	h.Cookies.Set(w, sess.RefreshToken)
	w.Header().Set(authsdk.CSRFHeader, sess.CSRFToken)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.AccessExpiresAt.Unix(),
		Admin:       adminView(sess.Account),
	})
}
