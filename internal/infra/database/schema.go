package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id               UUID PRIMARY KEY,
		name             TEXT NOT NULL,
		email            TEXT NOT NULL,
		phone            TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'submitted'
			CHECK (status IN ('submitted','email_sent','reminder_1','reminder_2','final_reminder','completed','stopped')),
		email_opened     BOOLEAN NOT NULL DEFAULT FALSE,
		clicked_link     BOOLEAN NOT NULL DEFAULT FALSE,
		payment_complete BOOLEAN NOT NULL DEFAULT FALSE,
		last_email_sent  TIMESTAMPTZ,
		email_count      INTEGER NOT NULL DEFAULT 0 CHECK (email_count >= 0),
		submitted_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_interaction TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT leads_paid_is_completed CHECK (NOT payment_complete OR status = 'completed')
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS leads_email_key ON leads (lower(email))`,
	`CREATE INDEX IF NOT EXISTS leads_candidates_idx ON leads (status) WHERE payment_complete = FALSE`,
	`CREATE INDEX IF NOT EXISTS leads_created_at_idx ON leads (created_at DESC)`,
}

// EnsureSchema creates the leads table and its indexes when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
