package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security/audit"
	"github.com/saborytradicion/storefront/internal/security/middleware"
	"github.com/saborytradicion/storefront/internal/service"
)

// TenantHandler handles tenant branding endpoints
type TenantHandler struct {
	tenants *service.TenantService
	audit   *audit.Logger
	logger  *slog.Logger
}

func NewTenantHandler(tenants *service.TenantService, auditLog *audit.Logger, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &TenantHandler{tenants: tenants, audit: auditLog, logger: logger}
}

// Current handles GET /tenant, the public branding of the request tenant
func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.Get(middleware.GetTenantFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// UpdateSettings handles PUT /tenants/{domain}/settings
func (h *TenantHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var settings domain.TenantSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	target := r.PathValue("domain")
	tenant, err := h.tenants.UpdateSettings(user, target, settings)
	if err != nil {
		h.audit.LogSettingsUpdate(r.Context(), target, user.ID, "failure")
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogSettingsUpdate(r.Context(), tenant.Domain, user.ID, "success")
	writeJSON(w, http.StatusOK, tenant)
}

// List handles GET /tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	tenants, err := h.tenants.List(user)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenants)
}
