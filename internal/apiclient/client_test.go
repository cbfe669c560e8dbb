package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/reliability/circuitbreaker"
	"github.com/saborytradicion/storefront/internal/reliability/retry"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:         srv.URL + "/",
		TenantDomain:    "demo.local",
		Timeout:         2 * time.Second,
		Retry:           &retry.Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffMultiplier: 1},
		BreakerFailures: 10,
		BreakerTimeout:  time.Minute,
		MenuCacheTTL:    time.Minute,
	}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(TenantHeader) != "demo.local" {
			t.Errorf("missing tenant header")
		}
		var body loginRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Correo o contraseña incorrectos"})
			return
		}
		writeJSON(w, http.StatusOK, domain.LoginResult{Token: "jwt", User: domain.User{ID: "u1", Role: domain.RoleAdmin}})
	}))

	res, err := c.Login(context.Background(), "a@demo.local", "secret")
	if err != nil || res.Token != "jwt" || res.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected login result %+v err=%v", res, err)
	}

	_, err = c.Login(context.Background(), "a@demo.local", "nope")
	var authErr *domain.AuthenticationError
	if !errors.As(err, &authErr) || authErr.Message != "Correo o contraseña incorrectos" {
		t.Fatalf("expected authentication error with server message, got %v", err)
	}
}

func TestVerifySendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, domain.User{ID: "u1", Name: "Ana"})
	}))

	u, err := c.Verify(context.Background(), "tok")
	if err != nil || u.Name != "Ana" {
		t.Fatalf("unexpected verify %+v err=%v", u, err)
	}
	if _, err := c.Verify(context.Background(), "bad"); StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestRetriesServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch r.URL.Path {
		case "/dishes":
			if n < 3 {
				writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
				return
			}
			writeJSON(w, http.StatusOK, []domain.Dish{{ID: "d1", Name: "Mole", Price: decimal.RequireFromString("120"), IsActive: true}})
		default:
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
		}
	}))

	dishes, err := c.ListDishes(context.Background())
	if err != nil || len(dishes) != 1 {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}

	calls.Store(0)
	_, err = c.ListOrders(context.Background(), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Message != "forbidden" {
		t.Fatalf("expected 403 APIError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestPlaceOrderIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "db down"})
	}))

	if _, err := c.PlaceOrder(context.Background(), &domain.Order{CustomerName: "Ana"}); StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("orders must be sent once, got %d", calls.Load())
	}
}

func TestMenuIsCached(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/dishes/missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "dish not found"})
			return
		}
		writeJSON(w, http.StatusOK, []domain.Dish{{ID: "d1", Name: "Pozole", IsActive: true}})
	}))
	ctx := context.Background()

	if _, err := c.ListDishes(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListDishes(ctx); err != nil {
		t.Fatal(err)
	}
	d, err := c.GetDish(ctx, "d1")
	if err != nil || d.Name != "Pozole" {
		t.Fatalf("expected dish from cache, got %+v err=%v", d, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one request, got %d", calls.Load())
	}

	if _, err := c.GetDish(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	c.InvalidateMenu()
	_, _ = c.ListDishes(ctx)
	if calls.Load() != 3 {
		t.Fatalf("expected refetch after invalidation, got %d", calls.Load())
	}
}

func TestCachedMenuIsNotShared(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.Dish{{ID: "d1", Name: "Pozole", IsActive: true}})
	}))
	ctx := context.Background()

	first, err := c.ListDishes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first[0].Name = "changed"

	second, err := c.ListDishes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Name != "Pozole" {
		t.Fatalf("caller edits leaked into the cache: %+v", second[0])
	}
	second[0].Name = "changed again"
	if third, _ := c.ListDishes(ctx); third[0].Name != "Pozole" {
		t.Fatalf("cached copy was handed out: %+v", third[0])
	}
}

func TestBreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "maintenance"})
	}))
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:         srv.URL,
		Retry:           &retry.Config{MaxAttempts: 1},
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	}, nil)

	for i := 0; i < 2; i++ {
		_, _ = c.Verify(context.Background(), "tok")
	}
	_, err := c.Verify(context.Background(), "tok")
	if !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open breaker must not reach the server, got %d calls", calls.Load())
	}
}

func TestUpdateTenantSettings(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/tenants/demo.local/settings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var s domain.TenantSettings
		_ = json.NewDecoder(r.Body).Decode(&s)
		writeJSON(w, http.StatusOK, domain.Tenant{Domain: "demo.local", Settings: s})
	}))

	tenant, err := c.UpdateTenantSettings(context.Background(), "tok", "demo.local", domain.TenantSettings{DisplayName: "Sabor"})
	if err != nil || tenant.Settings.DisplayName != "Sabor" {
		t.Fatalf("unexpected tenant %+v err=%v", tenant, err)
	}
}

func TestWatchOrders(t *testing.T) {
	upgrader := websocket.Upgrader{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(domain.Order{ID: "o1"})
		_ = conn.WriteJSON(domain.Order{ID: "o2"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	}))

	var got []string
	err := c.WatchOrders(context.Background(), "tok", func(o domain.Order) { got = append(got, o.ID) })
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if len(got) != 2 || got[0] != "o1" || got[1] != "o2" {
		t.Fatalf("unexpected orders %v", got)
	}

	if err := c.WatchOrders(context.Background(), "bad", func(domain.Order) {}); StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("expected refused feed, got %v", err)
	}
}
