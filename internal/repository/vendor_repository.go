package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// PostgresVendorRepository implements domain.VendorRepository using PostgreSQL
type PostgresVendorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresVendorRepository creates a new vendor repository
func NewPostgresVendorRepository(db *sql.DB, logger *slog.Logger) *PostgresVendorRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresVendorRepository{db: db, logger: logger}
}

// UpsertBatch writes vendors in a single INSERT ... ON CONFLICT keyed on
// external_vendor_id. The batch must not repeat an external id; Postgres
// refuses to update the same row twice in one statement.
func (r *PostgresVendorRepository) UpsertBatch(ctx context.Context, vendors []*domain.Vendor) error {
	if len(vendors) == 0 {
		return nil
	}

	n := len(vendors)
	var (
		ids          = make([]string, n)
		names        = make([]string, n)
		legalNames   = make([]string, n)
		active       = make([]bool, n)
		countries    = make([]string, n)
		states       = make([]string, n)
		descriptions = make([]string, n)
		categories   = make([]string, n)
	)
	for i, v := range vendors {
		ids[i] = v.ExternalVendorID
		names[i] = v.Name
		legalNames[i] = v.LegalName
		active[i] = v.IsActive
		countries[i] = v.Country
		states[i] = v.State
		descriptions[i] = v.Description
		categories[i] = v.CategoryName
	}

	query := `
		INSERT INTO vendors (external_vendor_id, name, legal_name, is_active, country, state, description, category_name, synced_at)
		SELECT u.external_vendor_id, u.name, u.legal_name, u.is_active, u.country, u.state, u.description, u.category_name, now()
		FROM unnest($1::text[], $2::text[], $3::text[], $4::bool[], $5::text[], $6::text[], $7::text[], $8::text[])
			AS u(external_vendor_id, name, legal_name, is_active, country, state, description, category_name)
		ON CONFLICT (external_vendor_id) DO UPDATE SET
			name = EXCLUDED.name,
			legal_name = EXCLUDED.legal_name,
			is_active = EXCLUDED.is_active,
			country = EXCLUDED.country,
			state = EXCLUDED.state,
			description = EXCLUDED.description,
			category_name = EXCLUDED.category_name,
			synced_at = now()
	`

	_, err := r.db.ExecContext(ctx, query,
		pq.Array(ids),
		pq.Array(names),
		pq.Array(legalNames),
		pq.Array(active),
		pq.Array(countries),
		pq.Array(states),
		pq.Array(descriptions),
		pq.Array(categories),
	)
	if err != nil {
		r.logger.Error("failed to upsert vendors",
			slog.Int("count", n),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to upsert vendors: %w", err)
	}
	return nil
}

// ExistingExternalIDs returns the subset of ids that already have a vendor row
func (r *PostgresVendorRepository) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT external_vendor_id FROM vendors WHERE external_vendor_id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vendors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan vendor id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
