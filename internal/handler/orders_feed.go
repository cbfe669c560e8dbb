package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/saborytradicion/storefront/internal/security/middleware"
	"github.com/saborytradicion/storefront/internal/service"
)

const (
	feedPingInterval = 15 * time.Second
	feedWriteTimeout = 5 * time.Second
)

// OrderFeedHandler streams new orders of a tenant over a websocket
type OrderFeedHandler struct {
	auth           *service.AuthService
	orders         *service.OrderService
	logger         *slog.Logger
	allowedOrigins []string
}

func NewOrderFeedHandler(authService *service.AuthService, orders *service.OrderService, logger *slog.Logger, allowedOrigins []string) *OrderFeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderFeedHandler{auth: authService, orders: orders, logger: logger, allowedOrigins: allowedOrigins}
}

func (h *OrderFeedHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/orders?token=...
// Browsers cannot set headers on a websocket handshake, so the token
// travels in the query string.
func (h *OrderFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	user, err := h.auth.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	tenant := middleware.GetTenantFromContext(r.Context())
	orders, cancel, err := h.orders.Subscribe(*user, tenant)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	defer cancel()

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	h.logger.Info("order feed opened", slog.String("tenant", tenant), slog.String("user_id", user.ID))

	_ = ws.SetReadDeadline(time.Now().Add(2 * feedPingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * feedPingInterval))
	})

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case order, ok := <-orders:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := ws.WriteJSON(order); err != nil {
				h.logger.Debug("order feed write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(feedWriteTimeout)); err != nil {
				return
			}
		case <-gone:
			h.logger.Info("order feed closed", slog.String("tenant", tenant), slog.String("user_id", user.ID))
			return
		case <-r.Context().Done():
			return
		}
	}
}
