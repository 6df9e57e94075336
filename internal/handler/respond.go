package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps sync and integration errors onto HTTP statuses.
// Configuration problems carry an actionable message; provider failures
// are reported as bad gateway.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		cfgErr  *domain.ConfigurationError
		authErr *domain.AuthError
		upErr   *domain.UpstreamError
	)
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusInternalServerError, cfgErr.Error())
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error: authErr.Error(),
			Hint:  "reauthenticate the " + authErr.Integration + " integration in settings",
		})
	case errors.As(err, &upErr):
		writeError(w, http.StatusBadGateway, upErr.Error())
	case errors.Is(err, service.ErrFeatureUnavailable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNothingSelected):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPreviewExpired):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
