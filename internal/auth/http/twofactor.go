package http

import (
	"net/http"

	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
	"github.com/aussiebroadwan/adminauth/pkg/httpx"
)

// TwoFactorHandler manages TOTP enrollment and backup codes for the caller.
type TwoFactorHandler struct {
	Auth *service.AuthService
}

// HandleEnroll handles POST /auth/2fa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a TOTP secret for the authenticated account. Two-factor stays off until confirmed.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.EnrollResponse	"Secret and otpauth URL, shown once"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Two-factor already enabled"
//	@Router			/auth/2fa/enroll [post].
func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	e, err := h.Auth.EnrollTOTP(r.Context(), p.AccountID, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.EnrollResponse{
		Secret:     e.Secret,
		OTPAuthURL: e.OTPAuthURL,
		Issuer:     e.Issuer,
		Account:    e.Account,
	})
}

// HandleConfirm handles POST /auth/2fa/confirm
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Checks the first code from the authenticator app, enables two-factor and returns backup codes.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CodeRequest			true	"Current TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"Backup codes, shown once"
//	@Failure		400		{object}	authsdk.ErrorResponse		"Malformed request"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid token or code"
//	@Failure		409		{object}	authsdk.ErrorResponse		"Not enrolled or already enabled"
//	@Router			/auth/2fa/confirm [post].
func (h *TwoFactorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	p, code, ok := decodeCode(w, r)
	if !ok {
		return
	}

	codes, err := h.Auth.ConfirmTOTP(r.Context(), p.AccountID, code, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleRegenerate handles POST /auth/2fa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code, used or not. Requires a current TOTP code.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CodeRequest			true	"Current TOTP code"
//	@Success		200		{object}	authsdk.BackupCodesResponse	"New backup codes, shown once"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Invalid token or code"
//	@Failure		409		{object}	authsdk.ErrorResponse		"Two-factor not enabled"
//	@Router			/auth/2fa/backup-codes [post].
func (h *TwoFactorHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	p, code, ok := decodeCode(w, r)
	if !ok {
		return
	}

	codes, err := h.Auth.RegenerateBackupCodes(r.Context(), p.AccountID, code, origin(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.BackupCodesResponse{BackupCodes: codes})
}

// HandleDisable handles DELETE /auth/2fa
//
//	@Summary		Disable two-factor
//	@Description	Turns two-factor off and deletes the secret and backup codes. Requires a current TOTP code.
//	@Tags			TwoFactor
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.CodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid token or code"
//	@Failure		409	{object}	authsdk.ErrorResponse	"Two-factor not enabled"
//	@Router			/auth/2fa [delete].
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	p, code, ok := decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.Auth.DisableTOTP(r.Context(), p.AccountID, code, origin(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func decodeCode(w http.ResponseWriter, r *http.Request) (httpx.Principal, string, bool) {
	p, ok := principal(w, r)
	if !ok {
		return httpx.Principal{}, "", false
	}
	var req authsdk.CodeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return httpx.Principal{}, "", false
	}
	return p, req.Code, true
}
