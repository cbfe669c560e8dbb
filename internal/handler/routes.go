package handler

import (
	"net/http"

	"github.com/saborytradicion/storefront/internal/security/middleware"
)

// Handlers groups the API endpoints mounted by Routes
type Handlers struct {
	Auth    *AuthHandler
	Menu    *MenuHandler
	Orders  *OrderHandler
	Feed    *OrderFeedHandler
	Tenants *TenantHandler
	Health  *HealthHandler
}

// Routes registers the API on a new mux. Tenant and JWT middleware must
// run in front of it. A nil Feed leaves the websocket route out.
func Routes(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()
	authed := func(fn http.HandlerFunc) http.Handler { return middleware.RequireAuth(fn) }

	mux.HandleFunc("POST /auth/login", h.Auth.Login)
	mux.HandleFunc("GET /auth/verify", h.Auth.Verify)
	mux.Handle("POST /auth/change-password", authed(h.Auth.ChangePassword))
	mux.Handle("GET /users", authed(h.Auth.ListUsers))
	mux.Handle("POST /users", authed(h.Auth.CreateUser))

	mux.HandleFunc("GET /dishes", h.Menu.ListDishes)
	mux.HandleFunc("GET /dishes/{id}", h.Menu.GetDish)

	mux.HandleFunc("POST /orders", h.Orders.Place)
	mux.Handle("GET /orders", authed(h.Orders.List))
	mux.Handle("GET /orders/{id}/qrcode", authed(h.Orders.QRCode))
	if h.Feed != nil {
		mux.Handle("GET /ws/orders", h.Feed)
	}

	mux.HandleFunc("GET /tenant", h.Tenants.Current)
	mux.Handle("GET /tenants", authed(h.Tenants.List))
	mux.Handle("PUT /tenants/{domain}/settings", authed(h.Tenants.UpdateSettings))

	mux.HandleFunc("GET /healthz", h.Health.Health)
	mux.HandleFunc("GET /readyz", h.Health.Ready)
	return mux
}
