package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/events"
	"github.com/lobbytrack/lobbytrack/internal/featureflags"
	"github.com/lobbytrack/lobbytrack/internal/observability/metrics"
	"github.com/lobbytrack/lobbytrack/internal/observability/tracing"
	"github.com/lobbytrack/lobbytrack/internal/schedule"
	"github.com/lobbytrack/lobbytrack/internal/security/audit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// UserDirectory lists users from the identity provider
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]domain.ExternalUser, error)
	PhotoSource
}

// VendorDirectory lists vendors from the spend-management platform
type VendorDirectory interface {
	ListVendors(ctx context.Context) ([]domain.ExternalVendor, error)
}

// LaneResult is the outcome of evaluating one lane. A lane that was not
// due reports only Ran=false.
type LaneResult struct {
	Ran bool `json:"ran"`
	*Result
	Error string `json:"error,omitempty"`
}

// Report is the outcome of one scheduled invocation
type Report struct {
	Success   bool                       `json:"success"`
	Timestamp time.Time                  `json:"timestamp"`
	Schedules map[domain.Lane]string     `json:"schedules"`
	Results   map[domain.Lane]LaneResult `json:"results"`
}

// SyncService evaluates each lane's schedule and runs the lanes that are
// due. Lanes run one after another and never affect each other.
type SyncService struct {
	settings    domain.SettingsRepository
	users       UserDirectory
	vendors     VendorDirectory
	reconciler  *Reconciler
	auditLogger *audit.Logger
	publisher   events.Publisher
	defaultPlan featureflags.Plan
	logger      *slog.Logger
}

// NewSyncService creates the orchestrator. publisher may be nil.
func NewSyncService(
	settings domain.SettingsRepository,
	users UserDirectory,
	vendors VendorDirectory,
	reconciler *Reconciler,
	auditLogger *audit.Logger,
	publisher events.Publisher,
	defaultPlan featureflags.Plan,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil, logger)
	}
	return &SyncService{
		settings:    settings,
		users:       users,
		vendors:     vendors,
		reconciler:  reconciler,
		auditLogger: auditLogger,
		publisher:   publisher,
		defaultPlan: defaultPlan,
		logger:      logger,
	}
}

// Plan returns the active plan: the plan_tier setting when present,
// otherwise the configured default.
func (s *SyncService) Plan(ctx context.Context) featureflags.Plan {
	v, err := s.settings.Get(ctx, domain.SettingPlanTier)
	if err != nil {
		s.logger.Warn("failed to read plan setting", slog.String("error", err.Error()))
		return s.defaultPlan
	}
	if strings.TrimSpace(v) == "" {
		return s.defaultPlan
	}
	return featureflags.ParsePlan(v)
}

func laneFeature(lane domain.Lane) featureflags.Feature {
	if lane == domain.LaneAzure {
		return featureflags.DirectorySync
	}
	return featureflags.VendorSync
}

// Run evaluates every lane against now. It never returns an error; lane
// failures are reported in the lane's result and audit entry.
func (s *SyncService) Run(ctx context.Context, now time.Time) *Report {
	report := &Report{
		Success:   true,
		Timestamp: now.UTC(),
		Schedules: make(map[domain.Lane]string, len(domain.Lanes)),
		Results:   make(map[domain.Lane]LaneResult, len(domain.Lanes)),
	}

	plan := s.Plan(ctx)
	for _, lane := range domain.Lanes {
		sched, res := s.runLane(ctx, lane, plan, now)
		report.Schedules[lane] = string(sched)
		report.Results[lane] = res
	}
	return report
}

func (s *SyncService) runLane(ctx context.Context, lane domain.Lane, plan featureflags.Plan, now time.Time) (schedule.Schedule, LaneResult) {
	ctx, span := tracing.Tracer().Start(ctx, "sync.lane",
		oteltrace.WithAttributes(attribute.String("sync.lane", string(lane))),
	)
	defer span.End()
	logger := s.logger.With(slog.String("lane", string(lane)))

	stored, err := s.settings.GetMany(ctx, []string{
		domain.ScheduleKey(lane),
		domain.StartKey(lane),
		domain.LastSyncKey(lane),
	})
	if err != nil {
		logger.Error("failed to load lane settings", slog.String("error", err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load settings")
		return schedule.Off, LaneResult{Error: fmt.Sprintf("load settings: %v", err)}
	}

	sched, err := schedule.Parse(stored[domain.ScheduleKey(lane)])
	if err != nil {
		logger.Warn("invalid stored schedule, treating as off", slog.String("error", err.Error()))
		sched = schedule.Off
	}
	span.SetAttributes(attribute.String("sync.schedule", string(sched)))

	if sched != schedule.Off && !featureflags.Resolve(plan, laneFeature(lane)) {
		logger.Info("lane not included in plan", slog.String("plan", string(plan)))
		s.skip(lane, "plan")
		return sched, LaneResult{}
	}

	lastSync := schedule.ParseTime(stored[domain.LastSyncKey(lane)])
	start := schedule.ParseTime(stored[domain.StartKey(lane)])
	if !schedule.IsDue(sched, lastSync, start, now) {
		logger.Debug("lane not due")
		s.skip(lane, "not_due")
		return sched, LaneResult{}
	}

	s.publish(events.Event{Type: events.LaneStarted, Lane: string(lane)})
	logger.Info("lane sync started", slog.String("schedule", string(sched)))
	started := time.Now()

	res, err := s.runLaneWork(ctx, lane, plan)
	duration := time.Since(started)
	span.SetAttributes(attribute.Int64("sync.duration_ms", duration.Milliseconds()))

	if err != nil {
		logger.Error("lane sync failed", slog.String("error", err.Error()), slog.Duration("duration", duration))
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
		metrics.ObserveSyncRun(string(lane), "failure", duration)

		_ = s.auditLogger.Record(ctx,
			fmt.Sprintf("sync.%s.failed", lane),
			"integration",
			fmt.Sprintf("%s sync failed: %v", lane, err),
			"",
			map[string]any{"lane": string(lane), "error": err.Error()},
		)
		s.publish(events.Event{Type: events.LaneFailed, Lane: string(lane), Data: map[string]any{"error": err.Error()}})
		return sched, LaneResult{Ran: true, Error: err.Error()}
	}

	if err := s.settings.Set(ctx, domain.LastSyncKey(lane), schedule.FormatTime(now)); err != nil {
		logger.Error("failed to record last sync time", slog.String("error", err.Error()))
	}

	metrics.ObserveSyncRun(string(lane), "success", duration)
	metrics.ObserveRecords(string(lane), "synced", res.Synced)
	metrics.ObserveRecords(string(lane), "failed", len(res.Errors))
	span.SetAttributes(
		attribute.Int("sync.synced", res.Synced),
		attribute.Int("sync.total", res.Total),
		attribute.Int("sync.errors", len(res.Errors)),
	)

	_ = s.auditLogger.Record(ctx,
		fmt.Sprintf("sync.%s.completed", lane),
		"integration",
		fmt.Sprintf("%s sync completed: %d of %d records synced", lane, res.Synced, res.Total),
		"",
		map[string]any{
			"lane":        string(lane),
			"synced":      res.Synced,
			"total":       res.Total,
			"error_count": len(res.Errors),
		},
	)
	s.publish(events.Event{Type: events.LaneCompleted, Lane: string(lane), Data: map[string]any{
		"synced": res.Synced,
		"total":  res.Total,
		"errors": len(res.Errors),
	}})

	logger.Info("lane sync completed",
		slog.Int("synced", res.Synced),
		slog.Int("total", res.Total),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("duration", duration),
	)
	return sched, LaneResult{Ran: true, Result: &res}
}

// runLaneWork fetches every external record for lane and reconciles them.
// Only a failed fetch is an error.
func (s *SyncService) runLaneWork(ctx context.Context, lane domain.Lane, plan featureflags.Plan) (Result, error) {
	switch lane {
	case domain.LaneAzure:
		users, err := s.users.ListUsers(ctx)
		if err != nil {
			return Result{}, err
		}
		return s.reconciler.ReconcileUsers(ctx, users, s.photoSource(ctx, plan)), nil
	case domain.LaneRamp:
		vendors, err := s.vendors.ListVendors(ctx)
		if err != nil {
			return Result{}, err
		}
		return s.reconciler.ReconcileVendors(ctx, vendors), nil
	}
	return Result{}, fmt.Errorf("unknown lane %q", lane)
}

// photoSource returns the user directory when photo sync is switched on
// and the plan includes it, nil otherwise.
func (s *SyncService) photoSource(ctx context.Context, plan featureflags.Plan) PhotoSource {
	if !photosEnabled(ctx, s.settings, plan) {
		return nil
	}
	return s.users
}

func photosEnabled(ctx context.Context, settings domain.SettingsRepository, plan featureflags.Plan) bool {
	if !featureflags.Resolve(plan, featureflags.PhotoSync) {
		return false
	}
	v, err := settings.Get(ctx, domain.SettingAzureSyncPhotos)
	return err == nil && strings.EqualFold(strings.TrimSpace(v), "true")
}

func (s *SyncService) skip(lane domain.Lane, reason string) {
	metrics.ObserveSyncSkipped(string(lane))
	s.publish(events.Event{Type: events.LaneSkipped, Lane: string(lane), Data: map[string]any{"reason": reason}})
}

func (s *SyncService) publish(e events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}
