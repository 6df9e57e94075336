package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/featureflags"
	"github.com/lobbytrack/lobbytrack/internal/security/audit"
)

var (
	// ErrNothingSelected is returned when an import names no records
	ErrNothingSelected = errors.New("no records selected")
	// ErrPreviewExpired is returned when an import selects by id but the
	// admin's preview is gone
	ErrPreviewExpired = errors.New("preview expired; list the records again before importing")
	// ErrFeatureUnavailable is returned when the active plan excludes a lane
	ErrFeatureUnavailable = errors.New("integration not included in the current plan")
)

// PlanResolver reports the active plan
type PlanResolver interface {
	Plan(ctx context.Context) featureflags.Plan
}

// UserPreview is an external user annotated with whether a local profile
// already exists for it
type UserPreview struct {
	domain.ExternalUser
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}

// VendorPreview is an external vendor annotated with whether it is already
// stored locally
type VendorPreview struct {
	domain.ExternalVendor
	Exists bool `json:"exists"`
}

// ImportSelection names what to import: explicit records, or ids picked
// from the admin's last preview. Records win when both are set.
type ImportSelection struct {
	Users   []domain.ExternalUser
	Vendors []domain.ExternalVendor
	IDs     []string
}

// ImportResult is returned by a manual import
type ImportResult struct {
	Success       bool     `json:"success"`
	Synced        int      `json:"synced"`
	TotalSelected int      `json:"total_selected"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ImportService runs the admin preview-then-import flow. It bypasses the
// schedule and never touches last-sync timestamps.
type ImportService struct {
	users       UserDirectory
	vendors     VendorDirectory
	profiles    domain.ProfileRepository
	vendorRepo  domain.VendorRepository
	previews    domain.PreviewRepository
	settings    domain.SettingsRepository
	reconciler  *Reconciler
	plans       PlanResolver
	auditLogger *audit.Logger
	logger      *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(
	users UserDirectory,
	vendors VendorDirectory,
	profiles domain.ProfileRepository,
	vendorRepo domain.VendorRepository,
	previews domain.PreviewRepository,
	settings domain.SettingsRepository,
	reconciler *Reconciler,
	plans PlanResolver,
	auditLogger *audit.Logger,
	logger *slog.Logger,
) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil, logger)
	}
	return &ImportService{
		users:       users,
		vendors:     vendors,
		profiles:    profiles,
		vendorRepo:  vendorRepo,
		previews:    previews,
		settings:    settings,
		reconciler:  reconciler,
		plans:       plans,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

func (s *ImportService) gate(ctx context.Context, lane domain.Lane) (featureflags.Plan, error) {
	plan := s.plans.Plan(ctx)
	if !featureflags.Resolve(plan, laneFeature(lane)) {
		return plan, fmt.Errorf("%s: %w", lane, ErrFeatureUnavailable)
	}
	return plan, nil
}

// PreviewUsers lists every directory user and marks those with a local
// profile. The listing is cached for the admin so a later import can
// select by id.
func (s *ImportService) PreviewUsers(ctx context.Context, ownerID string) ([]UserPreview, error) {
	if _, err := s.gate(ctx, domain.LaneAzure); err != nil {
		return nil, err
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(users))
	for _, u := range users {
		if e := u.PrimaryEmail(); e != "" {
			emails = append(emails, e)
		}
	}
	existing, err := s.profiles.ExistingEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("check existing profiles: %w", err)
	}

	if err := s.previews.SaveUsers(ctx, ownerID, users); err != nil {
		s.logger.Warn("failed to cache user preview", slog.String("error", err.Error()))
	}

	out := make([]UserPreview, 0, len(users))
	for _, u := range users {
		email := u.PrimaryEmail()
		out = append(out, UserPreview{ExternalUser: u, Email: email, Exists: email != "" && existing[email]})
	}
	return out, nil
}

// PreviewVendors lists every external vendor and marks those stored locally
func (s *ImportService) PreviewVendors(ctx context.Context, ownerID string) ([]VendorPreview, error) {
	if _, err := s.gate(ctx, domain.LaneRamp); err != nil {
		return nil, err
	}
	vendors, err := s.vendors.ListVendors(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(vendors))
	for _, v := range vendors {
		ids = append(ids, v.ExternalID)
	}
	existing, err := s.vendorRepo.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check existing vendors: %w", err)
	}

	if err := s.previews.SaveVendors(ctx, ownerID, vendors); err != nil {
		s.logger.Warn("failed to cache vendor preview", slog.String("error", err.Error()))
	}

	out := make([]VendorPreview, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, VendorPreview{ExternalVendor: v, Exists: existing[v.ExternalID]})
	}
	return out, nil
}

// ImportUsers reconciles the selected directory users
func (s *ImportService) ImportUsers(ctx context.Context, actorID string, sel ImportSelection) (*ImportResult, error) {
	plan, err := s.gate(ctx, domain.LaneAzure)
	if err != nil {
		return nil, err
	}

	records := sel.Users
	var warnings []string
	if len(records) == 0 && len(sel.IDs) > 0 {
		cached, err := s.previews.LoadUsers(ctx, actorID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPreviewExpired
		}
		if err != nil {
			return nil, err
		}
		records, warnings = selectByID(cached, sel.IDs, func(u domain.ExternalUser) string { return u.ExternalID })
	}
	if len(records) == 0 {
		return nil, ErrNothingSelected
	}

	var photos PhotoSource
	if photosEnabled(ctx, s.settings, plan) {
		photos = s.users
	}
	res := s.reconciler.ReconcileUsers(ctx, records, photos)
	return s.finish(ctx, domain.LaneAzure, actorID, len(records), res, warnings), nil
}

// ImportVendors reconciles the selected vendors
func (s *ImportService) ImportVendors(ctx context.Context, actorID string, sel ImportSelection) (*ImportResult, error) {
	if _, err := s.gate(ctx, domain.LaneRamp); err != nil {
		return nil, err
	}

	records := sel.Vendors
	var warnings []string
	if len(records) == 0 && len(sel.IDs) > 0 {
		cached, err := s.previews.LoadVendors(ctx, actorID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPreviewExpired
		}
		if err != nil {
			return nil, err
		}
		records, warnings = selectByID(cached, sel.IDs, func(v domain.ExternalVendor) string { return v.ExternalID })
	}
	if len(records) == 0 {
		return nil, ErrNothingSelected
	}

	res := s.reconciler.ReconcileVendors(ctx, records)
	return s.finish(ctx, domain.LaneRamp, actorID, len(records), res, warnings), nil
}

func (s *ImportService) finish(ctx context.Context, lane domain.Lane, actorID string, selected int, res Result, warnings []string) *ImportResult {
	warnings = append(warnings, res.Errors...)

	_ = s.auditLogger.Record(ctx,
		fmt.Sprintf("import.%s.completed", lane),
		"integration",
		fmt.Sprintf("%s import: %d of %d selected records synced", lane, res.Synced, selected),
		actorID,
		map[string]any{
			"lane":           string(lane),
			"synced":         res.Synced,
			"total_selected": selected,
			"error_count":    len(res.Errors),
		},
	)

	return &ImportResult{
		Success:       true,
		Synced:        res.Synced,
		TotalSelected: selected,
		Warnings:      warnings,
	}
}

// selectByID picks records whose id is in ids, in preview order. Ids not
// present in the preview become warnings.
func selectByID[T any](records []T, ids []string, id func(T) string) ([]T, []string) {
	want := make(map[string]bool, len(ids))
	for _, i := range ids {
		want[i] = true
	}
	var out []T
	seen := make(map[string]bool, len(ids))
	for _, r := range records {
		k := id(r)
		if want[k] && !seen[k] {
			seen[k] = true
			out = append(out, r)
		}
	}
	var warnings []string
	for _, i := range ids {
		if !seen[i] {
			warnings = append(warnings, fmt.Sprintf("%s: not found in preview", i))
			seen[i] = true
		}
	}
	return out, warnings
}
