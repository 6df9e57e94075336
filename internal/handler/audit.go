package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
)

// AuditHandler lists audit entries
type AuditHandler struct {
	repo   domain.AuditRepository
	logger *slog.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(repo domain.AuditRepository, logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{repo: repo, logger: logger}
}

type auditEntryResponse struct {
	ID          string          `json:"id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	ActorID     string          `json:"actor_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ServeHTTP handles GET /api/audit?limit=N&entity_type=X
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.repo.List(r.Context(), r.URL.Query().Get("entity_type"), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		meta := e.Metadata
		if len(meta) == 0 {
			meta = json.RawMessage(`{}`)
		}
		out = append(out, auditEntryResponse{
			ID:          e.ID,
			Action:      e.Action,
			EntityType:  e.EntityType,
			Description: e.Description,
			Metadata:    meta,
			ActorID:     e.ActorID,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}
