package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are idempotent so the schema can be pushed on every setup run.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_credits (
		user_id     TEXT PRIMARY KEY,
		credits     BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
		total_used  BIGINT NOT NULL DEFAULT 0 CHECK (total_used >= 0),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id          UUID PRIMARY KEY,
		seq         BIGSERIAL NOT NULL,
		user_id     TEXT NOT NULL,
		amount      BIGINT NOT NULL,
		type        TEXT NOT NULL CHECK (type IN ('initial', 'usage', 'grant')),
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_transactions_user_seq
		ON credit_transactions (user_id, seq DESC)`,
}

// ApplySchema creates the ledger tables on db inside a single transaction.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit()
}

// PostgresSchema pushes the ledger schema to the database named by a connection string.
type PostgresSchema struct{}

func NewPostgresSchema() *PostgresSchema {
	return &PostgresSchema{}
}

func (PostgresSchema) Push(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return ErrNotConfigured
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	return ApplySchema(ctx, db)
}
