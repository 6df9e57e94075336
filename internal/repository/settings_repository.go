package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// PostgresSettingsRepository implements domain.SettingsRepository using PostgreSQL
type PostgresSettingsRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSettingsRepository creates a new settings repository
func NewPostgresSettingsRepository(db *sql.DB, logger *slog.Logger) *PostgresSettingsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSettingsRepository{db: db, logger: logger}
}

// Get returns the value for key, or "" when unset
func (r *PostgresSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// GetMany returns the stored values for keys. Absent keys are omitted.
func (r *PostgresSettingsRepository) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set creates or replaces a setting
func (r *PostgresSettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		r.logger.Error("failed to write setting",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
