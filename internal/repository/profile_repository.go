package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/lobbytrack/lobbytrack/internal/domain"
)

const profileColumns = `id, email, full_name, role, avatar_url, job_title, department,
	COALESCE(location_id::text, ''), created_at, updated_at`

// PostgresProfileRepository implements domain.ProfileRepository using PostgreSQL
type PostgresProfileRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProfileRepository creates a new profile repository
func NewPostgresProfileRepository(db *sql.DB, logger *slog.Logger) *PostgresProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProfileRepository{
		db:     db,
		logger: logger,
	}
}

func scanProfile(row interface{ Scan(...any) error }) (*domain.Profile, error) {
	p := &domain.Profile{}
	var role string
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&role,
		&p.AvatarURL,
		&p.JobTitle,
		&p.Department,
		&p.LocationID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.Role = domain.Role(role)
	return p, err
}

// GetByEmail retrieves a profile by normalized email
func (r *PostgresProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return p, nil
}

// GetByID retrieves a profile by ID
func (r *PostgresProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Create inserts a profile. The ID must already be set to the identity ID.
func (r *PostgresProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, role, avatar_url, job_title, department)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		profile.ID,
		strings.ToLower(profile.Email),
		profile.FullName,
		string(profile.Role),
		profile.AvatarURL,
		profile.JobTitle,
		profile.Department,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %s: %w", profile.Email, domain.ErrConflict)
		}
		r.logger.Error("failed to create profile",
			slog.String("email", profile.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// UpdateFromDirectory refreshes the directory-owned fields. Role and
// location are never written here.
func (r *PostgresProfileRepository) UpdateFromDirectory(ctx context.Context, profile *domain.Profile) error {
	query := `
		UPDATE profiles
		SET full_name = $1, job_title = $2, department = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		profile.FullName,
		profile.JobTitle,
		profile.Department,
		profile.ID,
	).Scan(&profile.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// SetAvatar points a profile at its stored avatar
func (r *PostgresProfileRepository) SetAvatar(ctx context.Context, id, avatarURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET avatar_url = $1, updated_at = now() WHERE id = $2`,
		avatarURL, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set avatar: %w", err)
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

// ExistingEmails returns the subset of emails that already have a profile
func (r *PostgresProfileRepository) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	out := make(map[string]bool, len(emails))
	if len(emails) == 0 {
		return out, nil
	}

	normalized := make([]string, len(emails))
	for i, e := range emails {
		normalized[i] = strings.ToLower(e)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT email FROM profiles WHERE email = ANY($1)`, pq.Array(normalized))
	if err != nil {
		return nil, fmt.Errorf("failed to look up profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan profile email: %w", err)
		}
		out[email] = true
	}
	return out, rows.Err()
}
