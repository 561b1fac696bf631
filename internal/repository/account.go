package repository

import (
	"context"
	"fmt"

	"github.com/convertia/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAccountRepository handles database operations for accounts.
type PostgresAccountRepository struct {
	db *pgxpool.Pool
}

// NewPostgresAccountRepository creates a new PostgresAccountRepository.
func NewPostgresAccountRepository(db *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{db: db}
}

// Create inserts a new account into the database.
func (r *PostgresAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, subject, email, display_name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.Subject, a.Email, a.DisplayName, a.Picture, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// FindByID returns an account by ID.
func (r *PostgresAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindBySubject returns an account by identity-provider subject.
func (r *PostgresAccountRepository) FindBySubject(ctx context.Context, subject string) (*domain.Account, error) {
	return r.findOne(ctx, `WHERE subject = $1`, subject)
}

func (r *PostgresAccountRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.Account, error) {
	query := `
		SELECT id, subject, email, display_name, picture, created_at, updated_at
		FROM accounts ` + where
	row := r.db.QueryRow(ctx, query, arg)

	var a domain.Account
	err := row.Scan(&a.ID, &a.Subject, &a.Email, &a.DisplayName, &a.Picture, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return &a, nil
}

// UpdateDisplayName refreshes the mutable profile fields.
func (r *PostgresAccountRepository) UpdateDisplayName(ctx context.Context, id, displayName, picture string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE accounts SET display_name = $1, picture = $2, updated_at = NOW() WHERE id = $3`,
		displayName, picture, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}
