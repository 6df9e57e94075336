package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/service"
)

// SyncRunner evaluates every lane once
type SyncRunner interface {
	Run(ctx context.Context, now time.Time) *service.Report
}

// SyncWorker drives the orchestrator from an in-process ticker for
// deployments without an external cron caller
type SyncWorker struct {
	runner   SyncRunner
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(runner SyncRunner, logger *slog.Logger, interval time.Duration) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		runner:   runner,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs until ctx is cancelled. A non-positive interval returns at once.
func (w *SyncWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sync worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SyncWorker) tick(ctx context.Context) {
	report := w.runner.Run(ctx, w.now())
	for lane, res := range report.Results {
		if res.Error != "" {
			w.logger.Warn("scheduled lane failed",
				slog.String("lane", string(lane)),
				slog.String("error", res.Error),
			)
		}
	}
}
