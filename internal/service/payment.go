package service

import (
	"context"
	"time"

	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/repository"
	"github.com/convertia/backend/pkg/payment"
	"github.com/google/uuid"
)

func newID() string { return uuid.New().String() }

// PaymentService creates and captures one-time orders, keeping the
// transaction audit trail in step with the gateway.
type PaymentService struct {
	gateway      payment.Gateway
	transactions repository.TransactionRepository
	price        int // centavos per conversion
	currency     string
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(gateway payment.Gateway, transactions repository.TransactionRepository, price int, currency string) *PaymentService {
	return &PaymentService{
		gateway:      gateway,
		transactions: transactions,
		price:        price,
		currency:     currency,
	}
}

// CreateOrder creates a one-time order and records it as a created
// transaction. accountID is nil for anonymous payers.
func (s *PaymentService) CreateOrder(ctx context.Context, accountID *string) (*domain.OrderResponse, error) {
	order, err := s.gateway.CreateOrder(ctx, s.price, s.currency)
	if err != nil {
		return nil, domain.ErrBadGateway("failed to create payment order", err)
	}

	tx := &domain.Transaction{
		ID:          newID(),
		AccountID:   accountID,
		Kind:        domain.TxOneTimePayment,
		ExternalRef: order.ID,
		Amount:      s.price,
		Currency:    s.currency,
		Status:      domain.TxStatusCreated,
		CreatedAt:   time.Now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, domain.ErrInternal("failed to record transaction", err)
	}

	return &domain.OrderResponse{OrderID: order.ID, ApprovalURL: order.ApprovalURL}, nil
}

// CaptureOrder captures an approved order and flips the audit row to
// captured. Idempotent: capturing an already-captured order returns the
// recorded transaction without calling the gateway again, so a retried
// request can never double-count. The bool reports whether THIS call won the
// status flip; the flip happens exactly once per order, so callers funding
// work off a capture must require it. Concurrent captures of the same order
// resolve to one winner at the store.
func (s *PaymentService) CaptureOrder(ctx context.Context, orderID string) (*domain.Transaction, bool, error) {
	tx, err := s.transactions.FindByExternalRef(ctx, orderID)
	if err != nil {
		return nil, false, domain.ErrInternal("failed to look up transaction", err)
	}
	if tx == nil {
		return nil, false, domain.ErrNotFound("unknown payment order")
	}
	if tx.Status == domain.TxStatusCaptured {
		return tx, false, nil
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, false, domain.ErrBadGateway("failed to capture payment", err)
	}
	if !capture.Paid() {
		return nil, false, domain.ErrPaymentRequired(domain.KindNotPaid, "payment has not been approved")
	}

	fresh, err := s.transactions.MarkCaptured(ctx, tx.ID)
	if err != nil {
		return nil, false, domain.ErrInternal("failed to record capture", err)
	}
	tx.Status = domain.TxStatusCaptured
	return tx, fresh, nil
}
