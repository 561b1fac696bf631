package repository

import (
	"context"
	"fmt"

	"github.com/convertia/backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConversionRepository handles database operations for conversion
// records.
type PostgresConversionRepository struct {
	db *pgxpool.Pool
}

// NewPostgresConversionRepository creates a new PostgresConversionRepository.
func NewPostgresConversionRepository(db *pgxpool.Pool) *PostgresConversionRepository {
	return &PostgresConversionRepository{db: db}
}

// Create appends a conversion attempt row.
func (r *PostgresConversionRepository) Create(ctx context.Context, c *domain.ConversionRecord) error {
	query := `
		INSERT INTO conversions (id, account_id, upload_handle, transaction_id, succeeded, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.AccountID, c.UploadHandle, c.TransactionID, c.Succeeded, c.ErrorMessage, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversion record: %w", err)
	}
	return nil
}

// ListRecentByAccount returns the latest conversion attempts for an account.
func (r *PostgresConversionRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]*domain.ConversionRecord, error) {
	query := `
		SELECT id, account_id, upload_handle, transaction_id, succeeded, error_message, created_at
		FROM conversions WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConversionRecord
	for rows.Next() {
		var c domain.ConversionRecord
		if err := rows.Scan(&c.ID, &c.AccountID, &c.UploadHandle, &c.TransactionID, &c.Succeeded, &c.ErrorMessage, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		records = append(records, &c)
	}
	return records, nil
}

// CountByAccount returns the total number of conversion attempts.
func (r *PostgresConversionRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM conversions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return count, nil
}
