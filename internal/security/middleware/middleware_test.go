package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/security/audit"
	"github.com/saborytradicion/storefront/internal/security/auth"
	"github.com/saborytradicion/storefront/internal/security/ratelimit"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "")
	token, _ := tm.GenerateToken(domain.User{ID: "u1", Role: domain.RoleAdmin, TenantDomain: "a.test"}, time.Hour)

	var seen *auth.Claims
	h := JWTMiddleware(tm, quietLogger())(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaimsFromContext(r.Context())
	})))

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Token " + token, http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Errorf("header %q: expected %d, got %d", tc.header, tc.status, rec.Code)
		}
	}
	if seen == nil || seen.UserID != "u1" {
		t.Fatalf("expected claims in context, got %+v", seen)
	}
}

func TestTenantMiddleware(t *testing.T) {
	var tenant string
	h := TenantMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant = GetTenantFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "http://Sabor.Test:8080/dishes", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if tenant != "sabor.test" {
		t.Fatalf("expected host fallback, got %q", tenant)
	}

	req.Header.Set(TenantHeader, "Other.Test")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if tenant != "other.test" {
		t.Fatalf("expected header tenant, got %q", tenant)
	}
}

func TestLoginRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()
	h := LoginRateLimit(limiter, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader("{}"))
		req.RemoteAddr = "10.1.1.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if send(http.MethodPost, "/auth/login").Code != http.StatusOK {
		t.Fatalf("first login should pass")
	}
	limited := send(http.MethodPost, "/auth/login")
	if limited.Code != http.StatusTooManyRequests {
		t.Fatalf("second login should be limited")
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After on a limited login")
	}
	if send(http.MethodGet, "/dishes").Code != http.StatusOK {
		t.Fatalf("other routes are not limited")
	}
}

func TestAuditMiddlewarePassesStatusThrough(t *testing.T) {
	h := AuditMiddleware(audit.NewLogger(quietLogger()))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/tenants/a.test/settings", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestSanitizeInputs(t *testing.T) {
	h := SanitizeInputs(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dishes?q=%3Cscript%3E", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
