package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerFixture struct {
	profiles   *memProfiles
	identities *memIdentities
	vendors    *memVendors
	avatars    *memAvatars
	r          *Reconciler
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		profiles:   newMemProfiles(),
		identities: newMemIdentities(),
		vendors:    newMemVendors(),
		avatars:    newMemAvatars(),
	}
	f.r = NewReconciler(f.profiles, f.identities, f.vendors, f.avatars, nil)
	return f
}

func twoUsers() []domain.ExternalUser {
	return []domain.ExternalUser{
		{ExternalID: "a", DisplayName: "Ada Lovelace", Mail: "Ada@Example.com", JobTitle: "Engineer"},
		{ExternalID: "b", DisplayName: "Bob", UserPrincipalName: "bob@example.com", Department: "Ops"},
	}
}

func TestReconcileUsersCreatesEmployeeProfiles(t *testing.T) {
	f := newReconcilerFixture()

	res := f.r.ReconcileUsers(context.Background(), twoUsers(), nil)

	assert.Equal(t, Result{Synced: 2, Total: 2}, res)
	require.Equal(t, 2, f.profiles.count())
	for _, email := range []string{"ada@example.com", "bob@example.com"} {
		p, err := f.profiles.GetByEmail(context.Background(), email)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEmployee, p.Role)
		ident, err := f.identities.GetByEmail(context.Background(), email)
		require.NoError(t, err)
		assert.Equal(t, ident.ID, p.ID)
	}
}

func TestReconcileUsersIsIdempotent(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	first := f.r.ReconcileUsers(ctx, twoUsers(), nil)
	before, _ := f.profiles.GetByEmail(ctx, "ada@example.com")
	second := f.r.ReconcileUsers(ctx, twoUsers(), nil)
	after, _ := f.profiles.GetByEmail(ctx, "ada@example.com")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, f.profiles.count())
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, "Ada Lovelace", after.FullName)
}

func TestReconcileUsersSkipsRecordsWithoutEmail(t *testing.T) {
	f := newReconcilerFixture()

	res := f.r.ReconcileUsers(context.Background(), []domain.ExternalUser{
		{ExternalID: "x", DisplayName: "Room 101"},
		{ExternalID: "a", DisplayName: "Ada", Mail: "ada@example.com"},
	}, nil)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Synced)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, f.profiles.count())
}

func TestReconcileUsersNeverChangesRoleOrLocation(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()
	require.NoError(t, f.profiles.Create(ctx, &domain.Profile{
		ID: "admin-1", Email: "ada@example.com", FullName: "Old", Role: domain.RoleAdmin, LocationID: "hq",
	}))

	res := f.r.ReconcileUsers(ctx, []domain.ExternalUser{
		{ExternalID: "a", DisplayName: "Ada New", Mail: "ADA@example.com", JobTitle: "CTO"},
	}, nil)

	assert.Equal(t, 1, res.Synced)
	p, err := f.profiles.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada New", p.FullName)
	assert.Equal(t, "CTO", p.JobTitle)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.Equal(t, "hq", p.LocationID)
}

func TestReconcileUsersCollectsPerRecordErrors(t *testing.T) {
	f := newReconcilerFixture()
	f.profiles.failEmail["bob@example.com"] = errors.New("insert failed")

	res := f.r.ReconcileUsers(context.Background(), twoUsers(), nil)

	assert.Equal(t, 1, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "bob@example.com: ")
	assert.Contains(t, res.Errors[0], "insert failed")
}

func TestReconcileUsersStoresPhotos(t *testing.T) {
	f := newReconcilerFixture()
	photos := &fakeUserDirectory{photo: []byte{1, 2, 3}}

	res := f.r.ReconcileUsers(context.Background(), twoUsers(), photos)

	assert.Equal(t, 2, res.Synced)
	p, _ := f.profiles.GetByEmail(context.Background(), "ada@example.com")
	assert.Equal(t, AvatarURL(p.ID), p.AvatarURL)
	_, data, err := f.avatars.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestReconcileUsersPhotoBreakerStopsFetching(t *testing.T) {
	f := newReconcilerFixture()
	photos := &fakeUserDirectory{}
	var users []domain.ExternalUser
	for i := range 8 {
		users = append(users, domain.ExternalUser{ExternalID: fmt.Sprint(i), Mail: fmt.Sprintf("u%d@example.com", i)})
	}

	res := f.r.ReconcileUsers(context.Background(), users, photos)

	assert.Equal(t, 8, res.Synced)
	assert.Empty(t, res.Errors, "photo failures never count as record errors")
	assert.Equal(t, photoFailureThreshold, photos.photoCalls)
}

func makeVendors(n int) []domain.ExternalVendor {
	out := make([]domain.ExternalVendor, n)
	for i := range out {
		out[i] = domain.ExternalVendor{ExternalID: fmt.Sprintf("v%03d", i), Name: fmt.Sprintf("Vendor %d", i), IsActive: true}
	}
	return out
}

func TestReconcileVendorsChunkFailure(t *testing.T) {
	f := newReconcilerFixture()
	f.vendors.failOn = func(call int, _ []*domain.Vendor) error {
		if call == 2 {
			return errors.New("deadlock detected")
		}
		return nil
	}

	res := f.r.ReconcileVendors(context.Background(), makeVendors(250))

	assert.Equal(t, 250, res.Total)
	assert.Equal(t, 150, res.Synced)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "vendors 101-200: deadlock detected", res.Errors[0])
	assert.Equal(t, 3, f.vendors.calls)
}

func TestReconcileVendorsIsIdempotent(t *testing.T) {
	f := newReconcilerFixture()
	ctx := context.Background()

	first := f.r.ReconcileVendors(ctx, makeVendors(3))
	second := f.r.ReconcileVendors(ctx, makeVendors(3))

	assert.Equal(t, first, second)
	assert.Len(t, f.vendors.byExtID, 3)
	assert.Equal(t, "vendor-v000", f.vendors.byExtID["v000"].ID)
}

func TestReconcileVendorsCollapsesDuplicatesLastWriteWins(t *testing.T) {
	f := newReconcilerFixture()

	res := f.r.ReconcileVendors(context.Background(), []domain.ExternalVendor{
		{ExternalID: "v1", Name: "Old"},
		{ExternalID: "v2", Name: "Other"},
		{ExternalID: "v1", Name: "New"},
	})

	assert.Equal(t, 3, res.Synced)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "New", f.vendors.byExtID["v1"].Name)
}
