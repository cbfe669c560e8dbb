package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/saborytradicion/storefront/internal/security/audit"
	"github.com/saborytradicion/storefront/internal/security/auth"
	"github.com/saborytradicion/storefront/internal/security/middleware"
	"github.com/saborytradicion/storefront/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}

	return &AuthHandler{
		authService: authService,
		audit:       auditLog,
		logger:      logger,
	}
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tenant := middleware.GetTenantFromContext(r.Context())
	result, err := h.authService.Login(req.Email, req.Password, tenant)
	if err != nil {
		h.audit.LogLogin(r.Context(), tenant, req.Email, "failure")
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogLogin(r.Context(), tenant, req.Email, "success")
	writeJSON(w, http.StatusOK, result)
}

// Verify handles GET /auth/verify. It answers with the current profile of
// the token's user.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.authService.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "oldPassword and newPassword are required")
		return
	}

	if err := h.authService.ChangePassword(user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogAction(r.Context(), user.TenantDomain, user.ID, "change_password", "user", user.ID, "success", "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

// ListUsers handles GET /users for the request's tenant
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	users, err := h.authService.ListUsers(user, middleware.GetTenantFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUser handles POST /users. A missing tenant defaults to the
// request's tenant.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req service.NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.TenantDomain == "" {
		req.TenantDomain = middleware.GetTenantFromContext(r.Context())
	}

	created, err := h.authService.CreateUser(actor, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogAction(r.Context(), created.TenantDomain, actor.ID, "create", "user", created.ID, "success", string(created.Role))
	writeJSON(w, http.StatusCreated, created)
}
