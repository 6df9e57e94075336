package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/reliability/circuitbreaker"
)

const (
	vendorChunkSize       = 100
	photoFailureThreshold = 5
)

// Result summarizes one reconcile pass. Errors holds one entry per failed
// user or failed vendor chunk; they never abort the pass.
type Result struct {
	Synced int      `json:"synced"`
	Total  int      `json:"total"`
	Errors []string `json:"errors,omitempty"`
}

// PhotoSource downloads directory profile photos. A nil result means no
// photo was available.
type PhotoSource interface {
	UserPhoto(ctx context.Context, externalID string) ([]byte, string)
}

// Reconciler creates or updates local profiles and vendors from external
// records. It never deletes rows.
type Reconciler struct {
	profiles   domain.ProfileRepository
	identities domain.IdentityRepository
	vendors    domain.VendorRepository
	avatars    domain.AvatarRepository
	logger     *slog.Logger
}

// NewReconciler creates a reconciler. avatars may be nil when photo sync
// is never enabled.
func NewReconciler(
	profiles domain.ProfileRepository,
	identities domain.IdentityRepository,
	vendors domain.VendorRepository,
	avatars domain.AvatarRepository,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		profiles:   profiles,
		identities: identities,
		vendors:    vendors,
		avatars:    avatars,
		logger:     logger,
	}
}

// AvatarURL is where a stored profile photo is served from
func AvatarURL(profileID string) string {
	return "/api/avatars/" + profileID
}

// ReconcileUsers upserts each user by lowercase email. Records without any
// email are skipped. When photos is non-nil each reconciled user's photo is
// fetched and stored; photo failures are logged only.
func (r *Reconciler) ReconcileUsers(ctx context.Context, records []domain.ExternalUser, photos PhotoSource) Result {
	res := Result{Total: len(records)}

	var breaker *circuitbreaker.CircuitBreaker
	if photos != nil && r.avatars != nil {
		breaker = circuitbreaker.NewCircuitBreaker(photoFailureThreshold, 0)
		breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			r.logger.Warn("photo sync circuit changed state",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
	}

	skipped := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("reconcile aborted: %v", err))
			break
		}

		email := rec.PrimaryEmail()
		if email == "" {
			skipped++
			continue
		}

		profile, err := r.upsertUser(ctx, email, rec)
		if err != nil {
			perr := &domain.PartialRecordError{Key: email, Err: err}
			res.Errors = append(res.Errors, perr.Error())
			r.logger.Warn("user reconcile failed", slog.String("email", email), slog.String("error", err.Error()))
			continue
		}
		res.Synced++

		if breaker != nil && rec.ExternalID != "" {
			r.syncPhoto(ctx, breaker, photos, profile, rec.ExternalID)
		}
	}

	r.logger.Info("users reconciled",
		slog.Int("total", res.Total),
		slog.Int("synced", res.Synced),
		slog.Int("skipped", skipped),
		slog.Int("errors", len(res.Errors)),
	)
	return res
}

func (r *Reconciler) upsertUser(ctx context.Context, email string, rec domain.ExternalUser) (*domain.Profile, error) {
	fullName := rec.DisplayName
	if fullName == "" {
		fullName = email
	}

	existing, err := r.profiles.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.FullName = fullName
		existing.JobTitle = rec.JobTitle
		existing.Department = rec.Department
		if err := r.profiles.UpdateFromDirectory(ctx, existing); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	identity, err := r.identities.FindOrCreate(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}

	profile := &domain.Profile{
		ID:         identity.ID,
		Email:      email,
		FullName:   fullName,
		Role:       domain.DefaultSyncedRole,
		JobTitle:   rec.JobTitle,
		Department: rec.Department,
	}
	if err := r.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

func (r *Reconciler) syncPhoto(ctx context.Context, breaker *circuitbreaker.CircuitBreaker, photos PhotoSource, profile *domain.Profile, externalID string) {
	if !breaker.AllowRequest() {
		return
	}

	data, contentType := photos.UserPhoto(ctx, externalID)
	if len(data) == 0 {
		breaker.RecordFailure()
		return
	}
	breaker.RecordSuccess()

	if err := r.avatars.Put(ctx, profile.ID, contentType, data); err != nil {
		r.logger.Warn("store avatar failed", slog.String("profile_id", profile.ID), slog.String("error", err.Error()))
		return
	}
	url := AvatarURL(profile.ID)
	if profile.AvatarURL == url {
		return
	}
	if err := r.profiles.SetAvatar(ctx, profile.ID, url); err != nil {
		r.logger.Warn("set avatar url failed", slog.String("profile_id", profile.ID), slog.String("error", err.Error()))
	}
}

// ReconcileVendors upserts vendors in chunks keyed on the external id. A
// failed chunk contributes one error and none of its records to Synced.
func (r *Reconciler) ReconcileVendors(ctx context.Context, records []domain.ExternalVendor) Result {
	res := Result{Total: len(records)}

	valid := make([]domain.ExternalVendor, 0, len(records))
	for _, rec := range records {
		if rec.ExternalID != "" {
			valid = append(valid, rec)
		}
	}

	for start := 0; start < len(valid); start += vendorChunkSize {
		end := min(start+vendorChunkSize, len(valid))
		chunk := valid[start:end]

		if err := r.vendors.UpsertBatch(ctx, collapseVendors(chunk)); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("vendors %d-%d: %v", start+1, end, err))
			r.logger.Warn("vendor chunk failed",
				slog.Int("from", start+1),
				slog.Int("to", end),
				slog.String("error", err.Error()),
			)
			continue
		}
		res.Synced += len(chunk)
	}

	r.logger.Info("vendors reconciled",
		slog.Int("total", res.Total),
		slog.Int("synced", res.Synced),
		slog.Int("errors", len(res.Errors)),
	)
	return res
}

// collapseVendors maps a chunk to rows, keeping the last record for each
// external id. One upsert statement cannot touch the same row twice.
func collapseVendors(chunk []domain.ExternalVendor) []*domain.Vendor {
	index := make(map[string]int, len(chunk))
	rows := make([]*domain.Vendor, 0, len(chunk))
	for _, rec := range chunk {
		v := &domain.Vendor{
			ExternalVendorID: rec.ExternalID,
			Name:             rec.Name,
			LegalName:        rec.LegalName,
			IsActive:         rec.IsActive,
			Country:          rec.Country,
			State:            rec.State,
			Description:      rec.Description,
			CategoryName:     rec.CategoryName,
		}
		if i, ok := index[rec.ExternalID]; ok {
			rows[i] = v
			continue
		}
		index[rec.ExternalID] = len(rows)
		rows = append(rows, v)
	}
	return rows
}
