package service

import (
	"context"
	"testing"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/featureflags"
	"github.com/lobbytrack/lobbytrack/internal/security/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPlan featureflags.Plan

func (p fixedPlan) Plan(context.Context) featureflags.Plan { return featureflags.Plan(p) }

type importFixture struct {
	users     *fakeUserDirectory
	vendors   *fakeVendorDirectory
	recon     *reconcilerFixture
	previews  *memPreviews
	auditRepo *memAudit
	svc       *ImportService
}

func newImportFixture(plan featureflags.Plan) *importFixture {
	f := &importFixture{
		users:     &fakeUserDirectory{users: twoUsers()},
		vendors:   &fakeVendorDirectory{vendors: makeVendors(3)},
		recon:     newReconcilerFixture(),
		previews:  newMemPreviews(),
		auditRepo: &memAudit{},
	}
	f.svc = NewImportService(
		f.users,
		f.vendors,
		f.recon.profiles,
		f.recon.vendors,
		f.previews,
		newMemSettings(nil),
		f.recon.r,
		fixedPlan(plan),
		audit.NewLogger(f.auditRepo, nil),
		nil,
	)
	return f
}

func TestPreviewUsersMarksExisting(t *testing.T) {
	f := newImportFixture(featureflags.PlanEnterprise)
	ctx := context.Background()
	require.NoError(t, f.recon.profiles.Create(ctx, &domain.Profile{ID: "p1", Email: "bob@example.com", Role: domain.RoleEmployee}))

	preview, err := f.svc.PreviewUsers(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, preview, 2)
	assert.False(t, preview[0].Exists)
	assert.Equal(t, "ada@example.com", preview[0].Email)
	assert.True(t, preview[1].Exists)

	assert.Len(t, f.previews.users["admin-1"], 2)
	assert.Equal(t, 1, f.recon.profiles.count(), "preview writes nothing")
	assert.Empty(t, f.auditRepo.actions())
}

func TestImportUsersByID(t *testing.T) {
	f := newImportFixture(featureflags.PlanEnterprise)
	ctx := context.Background()
	_, err := f.svc.PreviewUsers(ctx, "admin-1")
	require.NoError(t, err)

	res, err := f.svc.ImportUsers(ctx, "admin-1", ImportSelection{IDs: []string{"b", "zzz"}})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, 1, res.TotalSelected)
	assert.Equal(t, []string{"zzz: not found in preview"}, res.Warnings)
	assert.Equal(t, 1, f.recon.profiles.count())
	assert.Equal(t, []string{"import.azure.completed"}, f.auditRepo.actions())
	assert.Equal(t, "admin-1", f.auditRepo.entries[0].ActorID)
}

func TestImportUsersWithRecords(t *testing.T) {
	f := newImportFixture(featureflags.PlanEnterprise)

	res, err := f.svc.ImportUsers(context.Background(), "admin-1", ImportSelection{Users: twoUsers()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Zero(t, f.users.listCalls, "explicit records are not refetched")
}

func TestImportRequiresPreviewForIDs(t *testing.T) {
	f := newImportFixture(featureflags.PlanEnterprise)

	_, err := f.svc.ImportVendors(context.Background(), "admin-1", ImportSelection{IDs: []string{"v000"}})
	assert.ErrorIs(t, err, ErrPreviewExpired)

	_, err = f.svc.ImportVendors(context.Background(), "admin-1", ImportSelection{})
	assert.ErrorIs(t, err, ErrNothingSelected)
}

func TestImportVendorsFromPreview(t *testing.T) {
	f := newImportFixture(featureflags.PlanPro)
	ctx := context.Background()

	preview, err := f.svc.PreviewVendors(ctx, "admin-1")
	require.NoError(t, err)
	require.Len(t, preview, 3)
	assert.False(t, preview[0].Exists)

	res, err := f.svc.ImportVendors(ctx, "admin-1", ImportSelection{IDs: []string{"v000", "v002"}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Empty(t, res.Warnings)

	preview, err = f.svc.PreviewVendors(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, preview[0].Exists)
	assert.False(t, preview[1].Exists)
}

func TestImportGatedByPlan(t *testing.T) {
	f := newImportFixture(featureflags.PlanPro)

	_, err := f.svc.PreviewUsers(context.Background(), "admin-1")
	assert.ErrorIs(t, err, ErrFeatureUnavailable)
	_, err = f.svc.ImportUsers(context.Background(), "admin-1", ImportSelection{Users: twoUsers()})
	assert.ErrorIs(t, err, ErrFeatureUnavailable)
}
