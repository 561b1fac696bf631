package handler

import (
	"net/http"

	"github.com/convertia/backend/internal/contextkeys"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// SubscriptionHandler handles subscription and entitlement endpoints.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
	auth          *service.AuthService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService, auth *service.AuthService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, auth: auth}
}

// Create handles POST /api/subscription.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req domain.CreateSubscriptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.subscriptions.CreateCheckout(r.Context(), accountID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// Confirm handles POST /api/subscription/confirm.
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	var req domain.ConfirmSubscriptionRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	ent, err := h.subscriptions.Confirm(r.Context(), accountID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, ent.Summary())
}

// Cancel handles DELETE /api/subscription/{id}.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	if err := h.subscriptions.Cancel(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "subscription cancelled"})
}

// Entitlement handles GET /api/entitlement.
func (h *SubscriptionHandler) Entitlement(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	ent, err := h.subscriptions.GetEntitlement(r.Context(), accountID)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, ent.Summary())
}

// Dashboard handles GET /api/dashboard.
func (h *SubscriptionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.auth.GetAccount(r.Context(), accountID)
	if err != nil {
		Error(w, err)
		return
	}

	dash, err := h.subscriptions.Dashboard(r.Context(), account)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, dash)
}

// requireAccountID extracts the authenticated account ID or writes a 401.
func requireAccountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID, ok := r.Context().Value(contextkeys.AccountID).(string)
	if !ok || accountID == "" {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return "", false
	}
	return accountID, true
}
