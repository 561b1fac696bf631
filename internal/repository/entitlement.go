package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/convertia/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresEntitlementRepository handles database operations for entitlements.
type PostgresEntitlementRepository struct {
	db *pgxpool.Pool
}

// NewPostgresEntitlementRepository creates a new PostgresEntitlementRepository.
func NewPostgresEntitlementRepository(db *pgxpool.Pool) *PostgresEntitlementRepository {
	return &PostgresEntitlementRepository{db: db}
}

const entitlementColumns = `id, account_id, plan_tier, credits_total, credits_used,
	period_start, period_end, subscription_ref, created_at, updated_at`

// Create inserts a new entitlement row.
func (r *PostgresEntitlementRepository) Create(ctx context.Context, e *domain.Entitlement) error {
	query := `
		INSERT INTO entitlements (` + entitlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		e.ID, e.AccountID, e.PlanTier, e.CreditsTotal, e.CreditsUsed,
		e.PeriodStart, e.PeriodEnd, e.SubscriptionRef, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		// The unique index on subscription_ref serializes concurrent confirms
		// of the same reference.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateSubscriptionRef
		}
		return fmt.Errorf("failed to create entitlement: %w", err)
	}
	return nil
}

// FindCurrentByAccount returns the latest entitlement whose period has not
// ended, or nil.
func (r *PostgresEntitlementRepository) FindCurrentByAccount(ctx context.Context, accountID string, now time.Time) (*domain.Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM entitlements
		WHERE account_id = $1 AND period_end > $2
		ORDER BY created_at DESC LIMIT 1
	`
	return r.findOne(ctx, query, accountID, now)
}

// FindBySubscriptionRef returns the entitlement tied to an external
// subscription reference, or nil.
func (r *PostgresEntitlementRepository) FindBySubscriptionRef(ctx context.Context, ref string) (*domain.Entitlement, error) {
	query := `
		SELECT ` + entitlementColumns + `
		FROM entitlements
		WHERE subscription_ref = $1
		ORDER BY created_at DESC LIMIT 1
	`
	return r.findOne(ctx, query, ref)
}

func (r *PostgresEntitlementRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Entitlement, error) {
	row := r.db.QueryRow(ctx, query, args...)

	var e domain.Entitlement
	err := row.Scan(
		&e.ID, &e.AccountID, &e.PlanTier, &e.CreditsTotal, &e.CreditsUsed,
		&e.PeriodStart, &e.PeriodEnd, &e.SubscriptionRef, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entitlement: %w", err)
	}
	return &e, nil
}

// ConsumeCredit performs the guarded atomic decrement. The guard lives in the
// UPDATE itself so two concurrent consumers can never both pass a stale
// check: the row lock serializes them and the second sees the new count.
func (r *PostgresEntitlementRepository) ConsumeCredit(ctx context.Context, entitlementID string, now time.Time) (bool, error) {
	query := `
		UPDATE entitlements
		SET credits_used = credits_used + 1, updated_at = NOW()
		WHERE id = $1
		  AND credits_used < credits_total
		  AND period_start <= $2 AND period_end > $2
	`
	tag, err := r.db.Exec(ctx, query, entitlementID, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume credit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// EndPeriod closes out an entitlement's period. Idempotent: an already-ended
// period is left alone.
func (r *PostgresEntitlementRepository) EndPeriod(ctx context.Context, entitlementID string, now time.Time) error {
	query := `
		UPDATE entitlements
		SET period_end = $2, updated_at = NOW()
		WHERE id = $1 AND period_end > $2
	`
	_, err := r.db.Exec(ctx, query, entitlementID, now)
	if err != nil {
		return fmt.Errorf("failed to end entitlement period: %w", err)
	}
	return nil
}
