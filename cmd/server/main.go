package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/featureflags"
	"github.com/saborytradicion/storefront/internal/handler"
	"github.com/saborytradicion/storefront/internal/infrastructure/logger"
	"github.com/saborytradicion/storefront/internal/infrastructure/redis"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
	"github.com/saborytradicion/storefront/internal/observability/tracing"
	"github.com/saborytradicion/storefront/internal/repository"
	"github.com/saborytradicion/storefront/internal/security"
	"github.com/saborytradicion/storefront/internal/security/audit"
	"github.com/saborytradicion/storefront/internal/security/auth"
	"github.com/saborytradicion/storefront/internal/security/middleware"
	"github.com/saborytradicion/storefront/internal/security/ratelimit"
	"github.com/saborytradicion/storefront/internal/service"
	"github.com/saborytradicion/storefront/pkg/config"
	"github.com/saborytradicion/storefront/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting storefront API", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, "storefront-api", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. Repositories
	checks := map[string]handler.Check{}
	var (
		users   domain.UserRepository
		tenants domain.TenantRepository
	)
	menu := repository.NewMemoryMenuRepository()
	orders := repository.NewMemoryOrderRepository()

	if cfg.Database != nil {
		pool, err := database.NewConnectionPool(ctx, cfg.Database, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.EnsureSchema(ctx); err != nil {
			log.Error("failed to prepare schema", slog.String("error", err.Error()))
			os.Exit(1)
		}
		users = repository.NewPostgresUserRepository(pool.GetDB(), log)
		tenants = repository.NewPostgresTenantRepository(pool.GetDB(), log)
		checks["postgres"] = pool.Health
	} else {
		users = repository.NewMemoryUserRepository()
		tenants = repository.NewMemoryTenantRepository()
	}

	if cfg.SeedDemoData {
		if err := seed(users, tenants, menu, cfg.TenantDomain, log); err != nil {
			log.Error("failed to seed demo data", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 5. Optional Redis, only probed for readiness
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		checks["redis"] = redisClient.Ping
	}

	// 6. Security components
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.Environment == "production" {
			log.Error("JWT_SECRET is required in production")
			os.Exit(1)
		}
		log.Warn("JWT_SECRET not set, using development secret")
	}
	tokenManager := auth.NewTokenManager(secret, "storefront")
	authz := security.NewAuthorizationService(log)
	rateLimiter := ratelimit.NewLimiter(cfg.LoginRateLimit, time.Minute)
	defer rateLimiter.Stop()
	auditLogger := audit.NewLogger(log)

	// 7. Services
	feed := service.NewOrderFeed(log)
	authService := service.NewAuthService(users, tokenManager, authz, cfg.TokenTTL, log)
	orderService := service.NewOrderService(orders, menu, authz, feed, log)
	tenantService := service.NewTenantService(tenants, authz, log)

	// 8. Routes
	handlers := handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, auditLogger, log),
		Menu:    handler.NewMenuHandler(menu, log),
		Orders:  handler.NewOrderHandler(orderService, auditLogger, log),
		Tenants: handler.NewTenantHandler(tenantService, auditLogger, log),
		Health:  handler.NewHealthHandler(checks, log),
	}
	if featureflags.EnabledOr(featureflags.OrderFeed, true) {
		handlers.Feed = handler.NewOrderFeedHandler(authService, orderService, log, cfg.CORSAllowedOrigins)
	}
	mux := handler.Routes(handlers)
	mux.Handle("GET /metrics", promhttp.Handler())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Accept", "Authorization", middleware.TenantHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	// request ID -> audit -> CORS -> tenant -> JWT -> login rate limit -> validation -> tracing -> metrics -> mux
	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = tracing.Handler(root, "storefront-api")
	root = middleware.SanitizeInputs(log)(root)
	root = middleware.ValidateJSONContentType(log)(root)
	root = middleware.LoginRateLimit(rateLimiter, log)(root)
	root = middleware.JWTMiddleware(tokenManager, log)(root)
	root = middleware.TenantMiddleware()(root)
	root = corsHandler.Handler(root)
	root = middleware.AuditMiddleware(auditLogger)(root)
	root = middleware.RequestID(log)(root)

	// 9. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Bool("postgres", cfg.Database != nil),
		slog.Bool("redis", cfg.RedisURL != ""),
		slog.Int("login_rate_limit", cfg.LoginRateLimit),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// seed creates the demo tenant on first start. The in-memory menu is
// filled on every start since it does not persist.
func seed(users domain.UserRepository, tenants domain.TenantRepository, menu *repository.MemoryMenuRepository, tenantDomain string, log *slog.Logger) error {
	_, err := tenants.GetByDomain(tenantDomain)
	switch {
	case err == nil:
		repository.SeedDemoMenu(menu, tenantDomain)
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}

	if err := repository.SeedDemoData(users, tenants, menu, tenantDomain); err != nil {
		return err
	}
	for _, acct := range repository.DemoAccounts(tenantDomain) {
		log.Info("demo account", slog.String("email", acct.Email), slog.String("role", string(acct.Role)))
	}
	return nil
}
