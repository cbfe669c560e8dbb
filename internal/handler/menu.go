package handler

import (
	"log/slog"
	"net/http"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security/middleware"
)

// MenuHandler serves the request tenant's dishes
type MenuHandler struct {
	menu   domain.MenuRepository
	logger *slog.Logger
}

func NewMenuHandler(menu domain.MenuRepository, logger *slog.Logger) *MenuHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuHandler{menu: menu, logger: logger}
}

// ListDishes handles GET /dishes
func (h *MenuHandler) ListDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.menu.ListDishes(middleware.GetTenantFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

// GetDish handles GET /dishes/{id}
func (h *MenuHandler) GetDish(w http.ResponseWriter, r *http.Request) {
	dish, err := h.menu.GetDish(middleware.GetTenantFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dish)
}
