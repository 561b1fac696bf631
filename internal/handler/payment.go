package handler

import (
	"net/http"

	"github.com/convertia/backend/internal/contextkeys"
	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/service"
)

// PaymentHandler handles the pay-per-use payment endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
	convert  *service.ConvertService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, convert *service.ConvertService) *PaymentHandler {
	return &PaymentHandler{payments: payments, convert: convert}
}

// CreateOrder handles POST /api/payment/order. Anonymous callers are
// allowed; an authenticated caller's account is attached to the audit row.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.payments.CreateOrder(r.Context(), optionalAccountID(r))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// CaptureAndConvert handles POST /api/payment/capture-and-convert.
func (h *PaymentHandler) CaptureAndConvert(w http.ResponseWriter, r *http.Request) {
	var req domain.CaptureAndConvertRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if req.OrderID == "" || req.UploadID == "" {
		Error(w, domain.ErrBadRequest("order_id and upload_id are required"))
		return
	}

	artifact, err := h.convert.CaptureAndConvert(r.Context(), optionalAccountID(r), req.OrderID, req.UploadID)
	if err != nil {
		Error(w, err)
		return
	}

	writeArtifact(w, artifact)
}

// optionalAccountID returns the authenticated account's ID, or nil on
// anonymous requests.
func optionalAccountID(r *http.Request) *string {
	if id, ok := r.Context().Value(contextkeys.AccountID).(string); ok && id != "" {
		return &id
	}
	return nil
}
