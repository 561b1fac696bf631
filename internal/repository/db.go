package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the initial schema migration.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS accounts (
			id           TEXT PRIMARY KEY,
			subject      TEXT NOT NULL UNIQUE,
			email        TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			picture      TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_accounts_subject ON accounts(subject);

		CREATE TABLE IF NOT EXISTS entitlements (
			id               TEXT PRIMARY KEY,
			account_id       TEXT NOT NULL REFERENCES accounts(id),
			plan_tier        TEXT NOT NULL,
			credits_total    INT NOT NULL,
			credits_used     INT NOT NULL DEFAULT 0,
			period_start     TIMESTAMPTZ NOT NULL,
			period_end       TIMESTAMPTZ NOT NULL,
			subscription_ref TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (credits_used >= 0 AND credits_used <= credits_total)
		);
		CREATE INDEX IF NOT EXISTS idx_entitlements_account ON entitlements(account_id, period_end);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_entitlements_sub_ref ON entitlements(subscription_ref);

		CREATE TABLE IF NOT EXISTS transactions (
			id           TEXT PRIMARY KEY,
			account_id   TEXT REFERENCES accounts(id),
			kind         TEXT NOT NULL,
			external_ref TEXT NOT NULL,
			amount       INT NOT NULL,
			currency     TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_ref ON transactions(external_ref);

		CREATE TABLE IF NOT EXISTS conversions (
			id             TEXT PRIMARY KEY,
			account_id     TEXT REFERENCES accounts(id),
			upload_handle  TEXT NOT NULL,
			transaction_id TEXT REFERENCES transactions(id),
			succeeded      BOOLEAN NOT NULL,
			error_message  TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_conversions_account ON conversions(account_id, created_at);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
