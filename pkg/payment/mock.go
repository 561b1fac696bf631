package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory gateway for development and tests. Orders and
// subscriptions start unapproved; tests (or a dev console) flip them with
// Approve/Activate, standing in for the payer visiting the approval page.
type MockGateway struct {
	mu            sync.Mutex
	orders        map[string]string // order ID -> status
	subscriptions map[string]string // subscription ID -> status
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:        make(map[string]string),
		subscriptions: make(map[string]string),
	}
}

func (g *MockGateway) CreateOrder(ctx context.Context, amount int, currency string) (*Order, error) {
	id := uuid.New().String()
	g.mu.Lock()
	g.orders[id] = OrderCreated
	g.mu.Unlock()
	return &Order{ID: id, ApprovalURL: "https://sandbox.invalid/approve?order_id=" + id}, nil
}

func (g *MockGateway) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	if status == OrderCreated {
		// Payer never approved; report the order as-is so the caller can
		// surface "not paid".
		return &Capture{Status: OrderCreated}, nil
	}
	g.orders[orderID] = OrderCompleted
	return &Capture{Status: OrderCompleted, Amount: 2000, Currency: "MXN"}, nil
}

func (g *MockGateway) CreateSubscription(ctx context.Context, planID string) (*Subscription, error) {
	id := uuid.New().String()
	g.mu.Lock()
	g.subscriptions[id] = SubscriptionApprovalPending
	g.mu.Unlock()
	return &Subscription{
		ID:          id,
		Status:      SubscriptionApprovalPending,
		ApprovalURL: "https://sandbox.invalid/approve?subscription_id=" + id,
	}, nil
}

func (g *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", subscriptionID)
	}
	return &Subscription{ID: subscriptionID, Status: status}, nil
}

// Approve marks an order as payer-approved so the next capture succeeds.
func (g *MockGateway) Approve(orderID string) {
	g.mu.Lock()
	g.orders[orderID] = "APPROVED"
	g.mu.Unlock()
}

// Activate marks a subscription as active on the gateway side.
func (g *MockGateway) Activate(subscriptionID string) {
	g.mu.Lock()
	g.subscriptions[subscriptionID] = SubscriptionActive
	g.mu.Unlock()
}
