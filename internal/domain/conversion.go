package domain

import "time"

// ConversionRecord is one row per conversion attempt, success or failure.
// Failed attempts are recorded too: money or credits were already spent by
// the time the artifact step runs, so the audit trail must show them.
type ConversionRecord struct {
	ID            string    `json:"id"`
	AccountID     *string   `json:"accountId,omitempty"` // nil for anonymous conversions
	UploadHandle  string    `json:"uploadHandle"`
	TransactionID *string   `json:"transactionId,omitempty"` // nil when paid via entitlement
	Succeeded     bool      `json:"succeeded"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ConvertRequest is the entitlement-path conversion input.
type ConvertRequest struct {
	UploadID string `json:"upload_id" validate:"required,uuid4"`
}

// CaptureAndConvertRequest is the pay-per-use conversion input.
type CaptureAndConvertRequest struct {
	OrderID  string `json:"order_id" validate:"required"`
	UploadID string `json:"upload_id" validate:"required,uuid4"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	UploadID string `json:"upload_id"`
}

// Dashboard aggregates an account's subscription and conversion activity.
type Dashboard struct {
	Account           *Account            `json:"account"`
	Entitlement       *EntitlementSummary `json:"entitlement"`
	CreditsRemaining  int                 `json:"credits_remaining"`
	RecentConversions []*ConversionRecord `json:"recent_conversions"`
	TotalConversions  int                 `json:"total_conversions"`
}
