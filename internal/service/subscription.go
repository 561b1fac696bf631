package service

import (
	"context"
	"errors"
	"time"

	"github.com/convertia/backend/internal/domain"
	"github.com/convertia/backend/internal/repository"
	"github.com/convertia/backend/pkg/payment"
	"github.com/go-playground/validator/v10"
)

// SubscriptionService owns the entitlement ledger: subscription activation,
// credit consumption, and cancellation. No other component writes
// entitlement rows.
type SubscriptionService struct {
	gateway      payment.Gateway
	entitlements repository.EntitlementRepository
	transactions repository.TransactionRepository
	conversions  repository.ConversionRepository
	validate     *validator.Validate
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(
	gateway payment.Gateway,
	entitlements repository.EntitlementRepository,
	transactions repository.TransactionRepository,
	conversions repository.ConversionRepository,
) *SubscriptionService {
	return &SubscriptionService{
		gateway:      gateway,
		entitlements: entitlements,
		transactions: transactions,
		conversions:  conversions,
		validate:     validator.New(),
	}
}

// CreateCheckout starts a subscription the payer must approve out-of-band.
// The pending transaction is recorded now; the entitlement is only created
// on confirmation.
func (s *SubscriptionService) CreateCheckout(ctx context.Context, accountID string, req *domain.CreateSubscriptionRequest) (*domain.SubscriptionLinkResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid plan tier")
	}
	plan, _ := domain.GetPlan(req.PlanTier)

	sub, err := s.gateway.CreateSubscription(ctx, req.PlanTier)
	if err != nil {
		return nil, domain.ErrBadGateway("failed to create subscription", err)
	}

	tx := &domain.Transaction{
		ID:          newID(),
		AccountID:   &accountID,
		Kind:        domain.TxSubscriptionPayment,
		ExternalRef: sub.ID,
		Amount:      plan.PriceMXN,
		Currency:    "MXN",
		Status:      domain.TxStatusCreated,
		CreatedAt:   time.Now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, domain.ErrInternal("failed to record transaction", err)
	}

	return &domain.SubscriptionLinkResponse{
		SubscriptionID: sub.ID,
		ApprovalURL:    sub.ApprovalURL,
	}, nil
}

// Confirm checks the gateway reports the subscription active and (re)creates
// the account's entitlement: credits reset to zero used, one-month period
// from confirmation time. Idempotent on the subscription reference — a
// retried confirm returns the entitlement already created for that reference
// and never resets credits twice.
func (s *SubscriptionService) Confirm(ctx context.Context, accountID string, req *domain.ConfirmSubscriptionRequest) (*domain.Entitlement, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation("invalid confirmation request")
	}

	existing, err := s.entitlements.FindBySubscriptionRef(ctx, req.SubscriptionRef)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up entitlement", err)
	}
	if existing != nil {
		return existing, nil
	}

	sub, err := s.gateway.GetSubscription(ctx, req.SubscriptionRef)
	if err != nil {
		return nil, domain.ErrBadGateway("failed to read subscription status", err)
	}
	if sub.Status != payment.SubscriptionActive {
		return nil, domain.ErrPaymentRequired(domain.KindSubscriptionNotActive,
			"subscription has not been activated by the payment gateway")
	}

	plan, _ := domain.GetPlan(req.PlanTier)
	now := time.Now()

	// The new entitlement supersedes the current one for evaluation; close
	// the old period so only one row is ever current. Same-reference rows are
	// left alone — a concurrent confirm of this reference must not end the
	// entitlement its winner just created.
	current, err := s.entitlements.FindCurrentByAccount(ctx, accountID, now)
	if err != nil {
		return nil, domain.ErrInternal("failed to look up entitlement", err)
	}
	if current != nil && current.SubscriptionRef != req.SubscriptionRef {
		if err := s.entitlements.EndPeriod(ctx, current.ID, now); err != nil {
			return nil, domain.ErrInternal("failed to supersede entitlement", err)
		}
	}

	ent := &domain.Entitlement{
		ID:              newID(),
		AccountID:       accountID,
		PlanTier:        plan.ID,
		CreditsTotal:    plan.Conversions,
		CreditsUsed:     0,
		PeriodStart:     now,
		PeriodEnd:       now.AddDate(0, 1, 0),
		SubscriptionRef: req.SubscriptionRef,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.entitlements.Create(ctx, ent); err != nil {
		// A concurrent confirm of the same reference won the insert; return
		// its entitlement instead of resetting credits a second time.
		if errors.Is(err, repository.ErrDuplicateSubscriptionRef) {
			winner, ferr := s.entitlements.FindBySubscriptionRef(ctx, req.SubscriptionRef)
			if ferr == nil && winner != nil {
				return winner, nil
			}
		}
		return nil, domain.ErrInternal("failed to create entitlement", err)
	}

	// Flip the pending subscription transaction; already-captured rows stay
	// untouched.
	if tx, err := s.transactions.FindByExternalRef(ctx, req.SubscriptionRef); err == nil && tx != nil {
		if _, err := s.transactions.MarkCaptured(ctx, tx.ID); err != nil {
			return nil, domain.ErrInternal("failed to record capture", err)
		}
	}

	return ent, nil
}

// GetEntitlement returns the account's current-period entitlement, or nil.
func (s *SubscriptionService) GetEntitlement(ctx context.Context, accountID string) (*domain.Entitlement, error) {
	ent, err := s.entitlements.FindCurrentByAccount(ctx, accountID, time.Now())
	if err != nil {
		return nil, domain.ErrInternal("failed to look up entitlement", err)
	}
	return ent, nil
}

// ConsumeCredit spends one conversion credit. The decrement is guarded at
// the store level, so concurrent callers racing for the last credit resolve
// to exactly one winner; the losers get NoCredits.
func (s *SubscriptionService) ConsumeCredit(ctx context.Context, accountID string) error {
	now := time.Now()
	ent, err := s.entitlements.FindCurrentByAccount(ctx, accountID, now)
	if err != nil {
		return domain.ErrInternal("failed to look up entitlement", err)
	}
	if ent == nil || !ent.Active(now) {
		return domain.ErrPaymentRequired(domain.KindNoCredits, "no conversion credits remaining")
	}

	ok, err := s.entitlements.ConsumeCredit(ctx, ent.ID, now)
	if err != nil {
		return domain.ErrInternal("failed to consume credit", err)
	}
	if !ok {
		// Lost the race for the last credit.
		return domain.ErrPaymentRequired(domain.KindNoCredits, "no conversion credits remaining")
	}
	return nil
}

// Cancel ends the entitlement's period now. Idempotent: cancelling an
// already-ended subscription succeeds; a subscription ID that was never the
// account's is a 404.
func (s *SubscriptionService) Cancel(ctx context.Context, accountID, entitlementID string) error {
	ent, err := s.entitlements.FindCurrentByAccount(ctx, accountID, time.Now())
	if err != nil {
		return domain.ErrInternal("failed to look up entitlement", err)
	}
	if ent == nil {
		// Nothing current; repeated cancels land here and succeed.
		return nil
	}
	if ent.ID != entitlementID {
		return domain.ErrNotFound("no active subscription with that ID")
	}
	if err := s.entitlements.EndPeriod(ctx, ent.ID, time.Now()); err != nil {
		return domain.ErrInternal("failed to cancel subscription", err)
	}
	return nil
}

// Dashboard aggregates the account's entitlement and conversion history.
func (s *SubscriptionService) Dashboard(ctx context.Context, account *domain.Account) (*domain.Dashboard, error) {
	ent, err := s.GetEntitlement(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	recent, err := s.conversions.ListRecentByAccount(ctx, account.ID, 10)
	if err != nil {
		return nil, domain.ErrInternal("failed to list conversions", err)
	}
	total, err := s.conversions.CountByAccount(ctx, account.ID)
	if err != nil {
		return nil, domain.ErrInternal("failed to count conversions", err)
	}

	remaining := 0
	if ent != nil {
		remaining = ent.CreditsRemaining()
	}

	return &domain.Dashboard{
		Account:           account,
		Entitlement:       ent.Summary(),
		CreditsRemaining:  remaining,
		RecentConversions: recent,
		TotalConversions:  total,
	}, nil
}
