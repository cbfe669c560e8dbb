package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security/audit"
	"github.com/saborytradicion/storefront/internal/security/middleware"
	"github.com/saborytradicion/storefront/internal/service"
)

// OrderHandler handles checkout and the staff order views
type OrderHandler struct {
	orders *service.OrderService
	audit  *audit.Logger
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, auditLog *audit.Logger, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &OrderHandler{orders: orders, audit: auditLog, logger: logger}
}

// Place handles POST /orders. Checkout is public.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req domain.Order
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	tenant := middleware.GetTenantFromContext(r.Context())
	order, err := h.orders.PlaceOrder(tenant, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.audit.LogOrderPlaced(r.Context(), tenant, order.ID)
	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orders, err := h.orders.ListOrders(user, middleware.GetTenantFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// QRCode handles GET /orders/{id}/qrcode
func (h *OrderHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	png, err := h.orders.QRCode(user, middleware.GetTenantFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
