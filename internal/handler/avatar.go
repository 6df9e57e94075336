package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// AvatarHandler serves stored profile photos
type AvatarHandler struct {
	repo   domain.AvatarRepository
	logger *slog.Logger
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(repo domain.AvatarRepository, logger *slog.Logger) *AvatarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarHandler{repo: repo, logger: logger}
}

// ServeHTTP handles GET /api/avatars/{id}
func (h *AvatarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}

	contentType, data, err := h.repo.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
