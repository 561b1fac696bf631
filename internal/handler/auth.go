package handler

import (
	"net/http"

	"github.com/convertia/backend/internal/contextkeys"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/service"
)

// AuthHandler handles authentication HTTP endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// GoogleLogin handles POST /api/auth/google.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleAuthRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.Credential == "" {
		Error(w, domain.ErrBadRequest("credential is required"))
		return
	}

	resp, err := h.auth.Login(r.Context(), req.Credential)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := r.Context().Value(contextkeys.AccountID).(string)
	if !ok || accountID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	account, err := h.auth.GetAccount(r.Context(), accountID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, account)
}
