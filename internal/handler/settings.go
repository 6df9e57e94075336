package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/service"
)

// SettingsHandler serves the sync schedule settings
type SettingsHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *service.SettingsService, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{settings: settings, logger: logger}
}

// GetSync handles GET /api/settings/sync
func (h *SettingsHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	lanes, err := h.settings.SyncSettings(r.Context(), time.Now())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lanes)
}

// PutSync handles PUT /api/settings/sync/{lane}
func (h *SettingsHandler) PutSync(w http.ResponseWriter, r *http.Request) {
	lane, ok := domain.ParseLane(r.PathValue("lane"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown lane")
		return
	}

	var req service.ScheduleUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.settings.UpdateSchedule(r.Context(), actorID(r), lane, req, time.Now())
	if errors.Is(err, service.ErrInvalidSetting) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
