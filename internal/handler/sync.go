package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/service"
)

// SyncRunner runs one scheduled evaluation of every lane
type SyncRunner interface {
	Run(ctx context.Context, now time.Time) *service.Report
}

// CronSyncHandler serves POST /api/cron/sync. The caller is authenticated
// by CronSecretMiddleware.
type CronSyncHandler struct {
	runner SyncRunner
	now    func() time.Time
	logger *slog.Logger
}

// NewCronSyncHandler creates a new cron sync handler
func NewCronSyncHandler(runner SyncRunner, logger *slog.Logger) *CronSyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronSyncHandler{runner: runner, now: time.Now, logger: logger}
}

// ServeHTTP always answers 200; per-lane failures are in the body
func (h *CronSyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := h.runner.Run(r.Context(), h.now())

	ran := 0
	for _, res := range report.Results {
		if res.Ran {
			ran++
		}
	}
	h.logger.Info("scheduled sync evaluated", slog.Int("lanes_run", ran))

	writeJSON(w, http.StatusOK, report)
}
