// Package payment wraps the external payment processor. Approval always
// happens out-of-band: the payer leaves for the gateway's own page and comes
// back with a reference, so captures and status reads must tolerate being
// called before approval happened.
package payment

import "context"

// Gateway defines the interface for payment providers.
type Gateway interface {
	// CreateOrder creates a one-time order the payer must approve.
	CreateOrder(ctx context.Context, amount int, currency string) (*Order, error)
	// CaptureOrder captures an approved order. A transport error does not
	// mean the order is dead; the caller may retry capture later.
	CaptureOrder(ctx context.Context, orderID string) (*Capture, error)
	// CreateSubscription starts a recurring billing agreement for a plan
	// tier; adapters resolve the tier to whatever the processor expects.
	CreateSubscription(ctx context.Context, planTier string) (*Subscription, error)
	// GetSubscription reads the current agreement status.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

// Gateway order/subscription statuses as reported by the processor.
const (
	OrderCompleted = "COMPLETED"
	OrderCaptured  = "CAPTURED"
	OrderCreated   = "CREATED"

	SubscriptionActive          = "ACTIVE"
	SubscriptionApprovalPending = "APPROVAL_PENDING"
)

// Order is a one-time payment order awaiting payer approval.
type Order struct {
	ID          string
	ApprovalURL string
}

// Capture is the result of capturing an approved order.
type Capture struct {
	Status   string
	Amount   int // centavos
	Currency string
}

// Paid reports whether a capture status means the money moved.
func (c *Capture) Paid() bool {
	return c.Status == OrderCompleted || c.Status == OrderCaptured
}

// Subscription is a recurring billing agreement.
type Subscription struct {
	ID          string
	Status      string
	ApprovalURL string
}
