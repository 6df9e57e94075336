package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// PostgresIdentityRepository implements domain.IdentityRepository using PostgreSQL
type PostgresIdentityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIdentityRepository creates a new identity repository
func NewPostgresIdentityRepository(db *sql.DB, logger *slog.Logger) *PostgresIdentityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIdentityRepository{db: db, logger: logger}
}

// GetByEmail retrieves an identity by email
func (r *PostgresIdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	id := &domain.Identity{}
	var hash sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM auth_identities
		WHERE email = $1
	`, strings.ToLower(email)).Scan(&id.ID, &id.Email, &hash, &id.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get identity by email: %w", err)
	}
	id.PasswordHash = hash.String
	return id, nil
}

// FindOrCreate inserts an identity for email unless one exists, then
// returns the stored row. Concurrent callers converge on one identity.
func (r *PostgresIdentityRepository) FindOrCreate(ctx context.Context, email string) (*domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_identities (id, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), email)
	if err != nil {
		r.logger.Error("failed to create identity",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	return r.GetByEmail(ctx, email)
}

// SetPassword stores a bcrypt hash for an identity
func (r *PostgresIdentityRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE auth_identities SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
