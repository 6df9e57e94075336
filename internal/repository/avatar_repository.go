package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// PostgresAvatarRepository stores profile photos as bytea rows
type PostgresAvatarRepository struct {
	db *sql.DB
}

// NewPostgresAvatarRepository creates a new avatar repository
func NewPostgresAvatarRepository(db *sql.DB) *PostgresAvatarRepository {
	return &PostgresAvatarRepository{db: db}
}

// Put creates or replaces a profile's avatar
func (r *PostgresAvatarRepository) Put(ctx context.Context, profileID, contentType string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO avatars (profile_id, content_type, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile_id) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, updated_at = now()
	`, profileID, contentType, data)
	if err != nil {
		return fmt.Errorf("failed to store avatar: %w", err)
	}
	return nil
}

// Get returns a profile's avatar
func (r *PostgresAvatarRepository) Get(ctx context.Context, profileID string) (string, []byte, error) {
	var contentType string
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT content_type, data FROM avatars WHERE profile_id = $1`, profileID,
	).Scan(&contentType, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, domain.ErrNotFound
		}
		return "", nil, fmt.Errorf("failed to get avatar: %w", err)
	}
	return contentType, data, nil
}
