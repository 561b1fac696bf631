package domain

import "time"

// Transaction kinds.
const (
	TxOneTimePayment      = "one_time_payment"
	TxSubscriptionPayment = "subscription_payment"
)

// Transaction statuses. Rows are append-only: once a terminal status is
// reached the row is never mutated again.
const (
	TxStatusCreated  = "created"
	TxStatusCaptured = "captured"
	TxStatusFailed   = "failed"
)

// Transaction is one audit entry in the payment ledger.
type Transaction struct {
	ID          string    `json:"id"`
	AccountID   *string   `json:"accountId,omitempty"` // nil for anonymous pay-per-use
	Kind        string    `json:"kind"`
	ExternalRef string    `json:"externalRef"` // gateway order or subscription ID
	Amount      int       `json:"amount"`      // centavos
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// OrderResponse is returned when a one-time order is created.
type OrderResponse struct {
	OrderID     string `json:"order_id"`
	ApprovalURL string `json:"approval_url"`
}
