package repository

import (
	"context"
	"errors"
	"time"

	"github.com/convertia/backend/internal/domain"
)

// ErrDuplicateSubscriptionRef is returned by EntitlementRepository.Create when
// an entitlement for the same external subscription reference already exists.
// Confirmation flows treat it as "another caller got there first".
var ErrDuplicateSubscriptionRef = errors.New("entitlement already exists for subscription reference")

// AccountRepository persists accounts created on first external-identity
// login.
type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindBySubject(ctx context.Context, subject string) (*domain.Account, error)
	UpdateDisplayName(ctx context.Context, id, displayName, picture string) error
}

// EntitlementRepository owns entitlement rows. Nothing outside this interface
// mutates credits or periods.
type EntitlementRepository interface {
	// Create inserts a new entitlement. The subscription reference is unique
	// across rows; a second insert for the same reference fails with
	// ErrDuplicateSubscriptionRef.
	Create(ctx context.Context, e *domain.Entitlement) error
	// FindCurrentByAccount returns the latest entitlement whose period has
	// not ended, or nil. The caller decides whether credits remain.
	FindCurrentByAccount(ctx context.Context, accountID string, now time.Time) (*domain.Entitlement, error)
	// FindBySubscriptionRef returns the entitlement created for an external
	// subscription reference, or nil. Used to keep confirmation idempotent.
	FindBySubscriptionRef(ctx context.Context, ref string) (*domain.Entitlement, error)
	// ConsumeCredit atomically increments credits_used iff credits remain and
	// the period is current. Returns false when the guard fails.
	ConsumeCredit(ctx context.Context, entitlementID string, now time.Time) (bool, error)
	// EndPeriod sets period_end so the entitlement stops evaluating as
	// active. A no-op for already-ended periods.
	EndPeriod(ctx context.Context, entitlementID string, now time.Time) error
}

// TransactionRepository is the append-only payment audit trail.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	FindByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error)
	// MarkCaptured flips a created row to captured. Returns false when the
	// row was already captured, so callers stay idempotent.
	MarkCaptured(ctx context.Context, id string) (bool, error)
}

// ConversionRepository records every conversion attempt.
type ConversionRepository interface {
	Create(ctx context.Context, c *domain.ConversionRecord) error
	ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]*domain.ConversionRecord, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
}
