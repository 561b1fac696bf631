package repository

import (
	"context"
	"fmt"

	"github.com/convertia/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTransactionRepository handles database operations for the payment
// audit trail.
type PostgresTransactionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTransactionRepository creates a new PostgresTransactionRepository.
func NewPostgresTransactionRepository(db *pgxpool.Pool) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// Create appends a new transaction row.
func (r *PostgresTransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, kind, external_ref, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.AccountID, t.Kind, t.ExternalRef, t.Amount, t.Currency, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindByExternalRef returns the transaction for a gateway reference, or nil.
func (r *PostgresTransactionRepository) FindByExternalRef(ctx context.Context, externalRef string) (*domain.Transaction, error) {
	query := `
		SELECT id, account_id, kind, external_ref, amount, currency, status, created_at
		FROM transactions WHERE external_ref = $1
		ORDER BY created_at DESC LIMIT 1
	`
	row := r.db.QueryRow(ctx, query, externalRef)

	var t domain.Transaction
	err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.ExternalRef, &t.Amount, &t.Currency, &t.Status, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &t, nil
}

// MarkCaptured flips a created row to captured. The status guard in the
// WHERE clause makes a second capture a no-op, reported via the bool.
func (r *PostgresTransactionRepository) MarkCaptured(ctx context.Context, id string) (bool, error) {
	query := `UPDATE transactions SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.db.Exec(ctx, query, domain.TxStatusCaptured, id, domain.TxStatusCreated)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction captured: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
