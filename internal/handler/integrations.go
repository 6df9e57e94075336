package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/security/middleware"
	"github.com/lobbytrack/lobbytrack/internal/service"
)

// IntegrationsHandler serves the admin preview and import endpoints
type IntegrationsHandler struct {
	imports *service.ImportService
	logger  *slog.Logger
}

// NewIntegrationsHandler creates a new integrations handler
func NewIntegrationsHandler(imports *service.ImportService, logger *slog.Logger) *IntegrationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrationsHandler{imports: imports, logger: logger}
}

type userImportRequest struct {
	Records []domain.ExternalUser `json:"records"`
	IDs     []string              `json:"ids"`
}

type vendorImportRequest struct {
	Records []domain.ExternalVendor `json:"records"`
	IDs     []string                `json:"ids"`
}

func actorID(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

// PreviewUsers handles GET /api/integrations/azure/users
func (h *IntegrationsHandler) PreviewUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.imports.PreviewUsers(r.Context(), actorID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "total": len(users)})
}

// PreviewVendors handles GET /api/integrations/ramp/vendors
func (h *IntegrationsHandler) PreviewVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.imports.PreviewVendors(r.Context(), actorID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": vendors, "total": len(vendors)})
}

// ImportUsers handles POST /api/integrations/azure/import
func (h *IntegrationsHandler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	var req userImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.imports.ImportUsers(r.Context(), actorID(r), service.ImportSelection{Users: req.Records, IDs: req.IDs})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImportVendors handles POST /api/integrations/ramp/import
func (h *IntegrationsHandler) ImportVendors(w http.ResponseWriter, r *http.Request) {
	var req vendorImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	res, err := h.imports.ImportVendors(r.Context(), actorID(r), service.ImportSelection{Vendors: req.Records, IDs: req.IDs})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
