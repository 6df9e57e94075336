package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func TestPreviewRepositoryRoundTripsPerOwnerAndLane(t *testing.T) {
	kv := newMemKV()
	repo := NewPreviewRepository(kv, 10*time.Minute, nil)
	ctx := context.Background()

	users := []domain.ExternalUser{{ExternalID: "u1", DisplayName: "Ada", Mail: "ada@example.com"}}
	vendors := []domain.ExternalVendor{{ExternalID: "v1", Name: "Acme", IsActive: true}}

	require.NoError(t, repo.SaveUsers(ctx, "admin-1", users))
	require.NoError(t, repo.SaveVendors(ctx, "admin-1", vendors))

	gotUsers, err := repo.LoadUsers(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, users, gotUsers)

	gotVendors, err := repo.LoadVendors(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, vendors, gotVendors)

	assert.Equal(t, 10*time.Minute, kv.ttls["preview:azure:admin-1"])

	_, err = repo.LoadUsers(ctx, "admin-2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
