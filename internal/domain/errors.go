package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error kinds surfaced to API clients so they can tell apart the
// payment-flow failure modes without parsing messages.
const (
	KindNotPaid               = "not_paid"
	KindOrderAlreadyUsed      = "order_already_used"
	KindNoCredits             = "no_credits"
	KindUploadExpired         = "upload_expired"
	KindGatewayError          = "gateway_error"
	KindConversionError       = "conversion_error"
	KindSubscriptionNotActive = "subscription_not_active"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"error"`
	Kind    string                 `json:"kind,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair to the error payload.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: msg}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: http.StatusUnprocessableEntity, Message: msg}
}

// ErrPaymentRequired covers everything the caller must pay (again) to fix:
// unapproved orders, exhausted credits, inactive subscriptions.
func ErrPaymentRequired(kind, msg string) *AppError {
	return &AppError{Code: http.StatusPaymentRequired, Message: msg, Kind: kind}
}

// ErrGone marks an upload handle that was consumed or aged out.
func ErrGone(msg string) *AppError {
	return &AppError{Code: http.StatusGone, Message: msg, Kind: KindUploadExpired}
}

// ErrBadGateway marks a transport/validation failure talking to the payment
// processor. Safe for the caller to retry with a fresh order.
func ErrBadGateway(msg string, err error) *AppError {
	return &AppError{Code: http.StatusBadGateway, Message: msg, Kind: KindGatewayError, Err: err}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
