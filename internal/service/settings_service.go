package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/schedule"
	"github.com/lobbytrack/lobbytrack/internal/security/audit"
)

// ErrInvalidSetting wraps every rejected settings update
var ErrInvalidSetting = errors.New("invalid setting")

// LaneSettings is the schedule state of one lane as shown to admins
type LaneSettings struct {
	Schedule string     `json:"schedule"`
	Start    *time.Time `json:"start,omitempty"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
}

// ScheduleUpdate changes a lane's schedule. A nil Start leaves the stored
// start time alone; an empty one clears it.
type ScheduleUpdate struct {
	Schedule string  `json:"schedule"`
	Start    *string `json:"start,omitempty"`
}

// SettingsService reads and writes the per-lane schedule settings
type SettingsService struct {
	settings    domain.SettingsRepository
	auditLogger *audit.Logger
	logger      *slog.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settings domain.SettingsRepository, auditLogger *audit.Logger, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil, logger)
	}
	return &SettingsService{settings: settings, auditLogger: auditLogger, logger: logger}
}

// SyncSettings returns every lane's schedule with its next due time
func (s *SettingsService) SyncSettings(ctx context.Context, now time.Time) (map[domain.Lane]LaneSettings, error) {
	keys := make([]string, 0, 3*len(domain.Lanes))
	for _, lane := range domain.Lanes {
		keys = append(keys, domain.ScheduleKey(lane), domain.StartKey(lane), domain.LastSyncKey(lane))
	}
	stored, err := s.settings.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load sync settings: %w", err)
	}

	out := make(map[domain.Lane]LaneSettings, len(domain.Lanes))
	for _, lane := range domain.Lanes {
		out[lane] = laneSettings(stored, lane, now)
	}
	return out, nil
}

func laneSettings(stored map[string]string, lane domain.Lane, now time.Time) LaneSettings {
	sched, err := schedule.Parse(stored[domain.ScheduleKey(lane)])
	if err != nil {
		sched = schedule.Off
	}
	start := schedule.ParseTime(stored[domain.StartKey(lane)])
	last := schedule.ParseTime(stored[domain.LastSyncKey(lane)])
	return LaneSettings{
		Schedule: string(sched),
		Start:    start,
		LastSync: last,
		NextRun:  schedule.NextRun(sched, last, start, now),
	}
}

// UpdateSchedule validates and stores a lane's schedule
func (s *SettingsService) UpdateSchedule(ctx context.Context, actorID string, lane domain.Lane, upd ScheduleUpdate, now time.Time) (LaneSettings, error) {
	sched, err := schedule.Parse(upd.Schedule)
	if err != nil {
		return LaneSettings{}, fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	var startValue *string
	if upd.Start != nil {
		v := strings.TrimSpace(*upd.Start)
		if v != "" {
			t := schedule.ParseTime(v)
			if t == nil {
				return LaneSettings{}, fmt.Errorf("%w: start must be an RFC 3339 timestamp", ErrInvalidSetting)
			}
			v = schedule.FormatTime(*t)
		}
		startValue = &v
	}

	if err := s.settings.Set(ctx, domain.ScheduleKey(lane), string(sched)); err != nil {
		return LaneSettings{}, fmt.Errorf("store schedule: %w", err)
	}
	if startValue != nil {
		if err := s.settings.Set(ctx, domain.StartKey(lane), *startValue); err != nil {
			return LaneSettings{}, fmt.Errorf("store start time: %w", err)
		}
	}

	meta := map[string]any{"lane": string(lane), "schedule": string(sched)}
	if startValue != nil {
		meta["start"] = *startValue
	}
	_ = s.auditLogger.Record(ctx, "settings.sync.updated", "settings",
		fmt.Sprintf("%s sync schedule set to %s", lane, sched), actorID, meta)

	stored, err := s.settings.GetMany(ctx, []string{domain.ScheduleKey(lane), domain.StartKey(lane), domain.LastSyncKey(lane)})
	if err != nil {
		return LaneSettings{}, fmt.Errorf("reload sync settings: %w", err)
	}
	return laneSettings(stored, lane, now), nil
}
