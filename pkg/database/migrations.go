package database

import (
	"context"
	"fmt"
	"log/slog"
)

// migrations are idempotent and applied in order on every start.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
	`CREATE TABLE IF NOT EXISTS auth_identities (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY REFERENCES auth_identities(id),
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'employee',
		avatar_url TEXT NOT NULL DEFAULT '',
		job_title TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		location_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		external_vendor_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		legal_name TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		country TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category_name TEXT NOT NULL DEFAULT '',
		synced_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		actor_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_created_at_idx ON audit_logs (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS avatars (
		profile_id UUID PRIMARY KEY REFERENCES profiles(id),
		content_type TEXT NOT NULL,
		data BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema if it does not exist
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for i, q := range migrations {
		if _, err := cp.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	cp.logger.Info("migrations applied", slog.Int("count", len(migrations)))
	return nil
}
