// Package apiclient talks to the storefront REST API. Tokens are passed
// per call by the caller; the client never looks them up itself.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
	"github.com/saborytradicion/storefront/internal/observability/tracing"
	"github.com/saborytradicion/storefront/internal/reliability/circuitbreaker"
	"github.com/saborytradicion/storefront/internal/reliability/retry"
	"github.com/saborytradicion/storefront/pkg/cache"
)

const maxBodyBytes = 1 << 20

// TenantHeader names the tenant a request is made for
const TenantHeader = "X-Tenant-Domain"

// Config holds client configuration
type Config struct {
	BaseURL         string
	TenantDomain    string
	Timeout         time.Duration
	Retry           *retry.Config
	BreakerFailures int
	BreakerTimeout  time.Duration
	MenuCacheTTL    time.Duration
	Transport       http.RoundTripper
}

// Client is a tenant-bound API client
type Client struct {
	baseURL string
	tenant  string
	http    *http.Client
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
	menu    *cache.Cache[[]domain.Dish]
	dishes  *cache.Cache[domain.Dish]
	logger  *slog.Logger
}

// New creates a client for cfg.TenantDomain
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	rc := *retryCfg
	rc.ShouldRetry = retryable

	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}
	breaker := circuitbreaker.NewCircuitBreaker(int32(failures), 1, breakerTimeout)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		metrics.SetBreakerState(int(to))
		logger.Warn("api circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tenant:  cfg.TenantDomain,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: tracing.Transport(cfg.Transport)},
		retry:   &rc,
		breaker: breaker,
		menu:    cache.New[[]domain.Dish](cfg.MenuCacheTTL),
		dishes:  cache.New[domain.Dish](cfg.MenuCacheTTL),
		logger:  logger,
	}
}

// TenantDomain is the tenant this client is bound to
func (c *Client) TenantDomain() string {
	return c.tenant
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. Rejected credentials come back
// as *domain.AuthenticationError with the server's message.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	var out domain.LoginResult
	err := c.call(ctx, "login", http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &out, true)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, &domain.AuthenticationError{Message: apiErr.Message}
		}
		return nil, err
	}
	return &out, nil
}

// Verify returns the user a token belongs to
func (c *Client) Verify(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.call(ctx, "verify", http.MethodGet, "/auth/verify", token, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDishes returns the tenant's menu, cached for MenuCacheTTL
func (c *Client) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	if dishes, ok := c.menu.Get(c.tenant); ok {
		return slices.Clone(dishes), nil
	}
	var out []domain.Dish
	if err := c.call(ctx, "list_dishes", http.MethodGet, "/dishes", "", nil, &out, true); err != nil {
		return nil, err
	}
	c.menu.Set(c.tenant, slices.Clone(out))
	for _, d := range out {
		c.dishes.Set(c.tenant+":"+d.ID, d)
	}
	return out, nil
}

// GetDish returns one dish; a missing dish is domain.ErrNotFound
func (c *Client) GetDish(ctx context.Context, id string) (*domain.Dish, error) {
	key := c.tenant + ":" + id
	if d, ok := c.dishes.Get(key); ok {
		return &d, nil
	}
	var out domain.Dish
	err := c.call(ctx, "get_dish", http.MethodGet, "/dishes/"+url.PathEscape(id), "", nil, &out, true)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("dish %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	c.dishes.Set(key, out)
	return &out, nil
}

// InvalidateMenu drops cached dishes of this tenant
func (c *Client) InvalidateMenu() {
	c.menu.Delete(c.tenant)
	c.dishes.Invalidate(c.tenant + ":")
}

// PlaceOrder submits an order. It is sent once: a lost answer must not
// create a duplicate order.
func (c *Client) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var out domain.Order
	if err := c.call(ctx, "place_order", http.MethodPost, "/orders", "", order, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the tenant's orders; token must be an admin or orders manager token
func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.call(ctx, "list_orders", http.MethodGet, "/orders", token, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderQRCode returns the PNG QR code of an order
func (c *Client) OrderQRCode(ctx context.Context, token, orderID string) ([]byte, error) {
	var out []byte
	err := c.call(ctx, "order_qrcode", http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/qrcode", token, nil, &out, true)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTenantSettings changes a tenant's branding. The server decides
// whether token may do so.
func (c *Client) UpdateTenantSettings(ctx context.Context, token, tenantDomain string, settings domain.TenantSettings) (*domain.Tenant, error) {
	var out domain.Tenant
	path := "/tenants/" + url.PathEscape(tenantDomain) + "/settings"
	if err := c.call(ctx, "update_tenant_settings", http.MethodPut, path, token, settings, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTenants returns every tenant; superadmin only
func (c *Client) ListTenants(ctx context.Context, token string) ([]domain.Tenant, error) {
	var out []domain.Tenant
	if err := c.call(ctx, "list_tenants", http.MethodGet, "/tenants", token, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// call runs one API operation through the breaker, retrying only when idempotent
func (c *Client) call(ctx context.Context, op, method, path, token string, in, out any, idempotent bool) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	cfg := c.retry
	if !idempotent {
		single := *c.retry
		single.MaxAttempts = 1
		cfg = &single
	}

	start := time.Now()
	_, err := retry.Do(ctx, cfg, c.logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.breaker.Execute(func() error {
			return c.roundTrip(ctx, method, path, token, body, out)
		}, tripsBreaker)
	})

	result := "ok"
	if err != nil {
		result = "error"
		if status := StatusCode(err); status != 0 {
			result = fmt.Sprintf("%dxx", status/100)
		}
	}
	metrics.ObserveAPICall(op, result, time.Since(start))
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, token string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set(TenantHeader, c.tenant)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if b, ok := out.(*[]byte); ok {
		*b = raw
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
