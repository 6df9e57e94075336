package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// kvStore is the subset of the Redis client the preview cache needs
type kvStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// PreviewRepository implements domain.PreviewRepository on Redis. Each
// admin's last listing per lane lives under preview:<lane>:<owner> until
// the TTL passes.
type PreviewRepository struct {
	store  kvStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewPreviewRepository creates a new preview repository
func NewPreviewRepository(store kvStore, ttl time.Duration, logger *slog.Logger) *PreviewRepository {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &PreviewRepository{store: store, ttl: ttl, logger: logger}
}

func previewKey(lane domain.Lane, ownerID string) string {
	return fmt.Sprintf("preview:%s:%s", lane, ownerID)
}

func (r *PreviewRepository) save(ctx context.Context, lane domain.Lane, ownerID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal preview: %w", err)
	}
	if err := r.store.Set(ctx, previewKey(lane, ownerID), data, r.ttl); err != nil {
		return fmt.Errorf("failed to store preview: %w", err)
	}
	r.logger.Debug("preview cached",
		slog.String("lane", string(lane)),
		slog.String("owner_id", ownerID),
		slog.Int("bytes", len(data)),
	)
	return nil
}

func (r *PreviewRepository) load(ctx context.Context, lane domain.Lane, ownerID string, v any) error {
	data, ok, err := r.store.Get(ctx, previewKey(lane, ownerID))
	if err != nil {
		return fmt.Errorf("failed to load preview: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal preview: %w", err)
	}
	return nil
}

// SaveUsers caches a directory user listing
func (r *PreviewRepository) SaveUsers(ctx context.Context, ownerID string, users []domain.ExternalUser) error {
	return r.save(ctx, domain.LaneAzure, ownerID, users)
}

// LoadUsers returns the cached listing or domain.ErrNotFound
func (r *PreviewRepository) LoadUsers(ctx context.Context, ownerID string) ([]domain.ExternalUser, error) {
	var users []domain.ExternalUser
	if err := r.load(ctx, domain.LaneAzure, ownerID, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveVendors caches a vendor listing
func (r *PreviewRepository) SaveVendors(ctx context.Context, ownerID string, vendors []domain.ExternalVendor) error {
	return r.save(ctx, domain.LaneRamp, ownerID, vendors)
}

// LoadVendors returns the cached listing or domain.ErrNotFound
func (r *PreviewRepository) LoadVendors(ctx context.Context, ownerID string) ([]domain.ExternalVendor, error) {
	var vendors []domain.ExternalVendor
	if err := r.load(ctx, domain.LaneRamp, ownerID, &vendors); err != nil {
		return nil, err
	}
	return vendors, nil
}
