package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// PostgresAuditRepository implements domain.AuditRepository using PostgreSQL.
// Rows are only ever inserted.
type PostgresAuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAuditRepository creates a new audit repository
func NewPostgresAuditRepository(db *sql.DB, logger *slog.Logger) *PostgresAuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAuditRepository{db: db, logger: logger}
}

// Append writes one entry, filling ID and CreatedAt
func (r *PostgresAuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	metadata := []byte(entry.Metadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	var actor sql.NullString
	if entry.ActorID != "" {
		actor = sql.NullString{String: entry.ActorID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, description, metadata, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.Action, entry.EntityType, entry.Description, string(metadata), actor).Scan(&entry.CreatedAt)
	if err != nil {
		r.logger.Error("failed to append audit entry",
			slog.String("action", entry.Action),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// List returns the newest entries first, optionally filtered by entity type
func (r *PostgresAuditRepository) List(ctx context.Context, entityType string, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, entity_type, description, metadata, COALESCE(actor_id, ''), created_at
		FROM audit_logs
		WHERE $1::text = '' OR entity_type = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, entityType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		e := &domain.AuditEntry{}
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.Description, &metadata, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Metadata = metadata
		out = append(out, e)
	}
	return out, rows.Err()
}
