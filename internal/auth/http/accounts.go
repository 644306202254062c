package http

import (
	"net/http"

	"github.com/aussiebroadwan/adminauth/internal/auth/service"
	"github.com/aussiebroadwan/adminauth/pkg/authsdk"
)

// AccountsHandler serves superadmin account operations.
type AccountsHandler struct {
	Auth *service.AuthService
}

// HandleDeactivate handles POST /auth/accounts/{id}/deactivate
//
//	@Summary		Deactivate an account
//	@Description	Marks the account inactive and revokes all of its sessions. Requires superadmin.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Account ID"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"Cannot deactivate yourself"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Caller is not a superadmin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Unknown account"
//	@Router			/auth/accounts/{id}/deactivate [post].
func (h *AccountsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if id == p.AccountID {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "cannot deactivate your own account").WriteError(w)
		return
	}

	if err := h.Auth.DeactivateAccount(r.Context(), id, origin(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
