package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/saborytradicion/storefront/internal/apiclient"
	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/infrastructure/logger"
	"github.com/saborytradicion/storefront/internal/infrastructure/redis"
	"github.com/saborytradicion/storefront/internal/observability/tracing"
	"github.com/saborytradicion/storefront/internal/reliability/retry"
	"github.com/saborytradicion/storefront/internal/storage"
	"github.com/saborytradicion/storefront/internal/storefront"
	"github.com/saborytradicion/storefront/internal/worker"
	"github.com/saborytradicion/storefront/pkg/config"
	"github.com/saborytradicion/storefront/pkg/database"
)

// app holds what every command needs: the persisted store, the API client
// and the notice pipeline printing to stderr
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	kv      domain.KeyValueStore
	client  *apiclient.Client
	notices *storefront.Notices

	closers        []func() error
	stopDispatcher context.CancelFunc
	dispatcherDone chan struct{}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.NewLoggerTo(os.Stderr, cfg.LogLevel)

	a := &app{cfg: cfg, log: log, notices: storefront.NewNotices()}

	shutdownTracing, err := tracing.Init(ctx, log, "storefront-cli", cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", slog.String("error", err.Error()))
	} else {
		a.closers = append(a.closers, func() error { return shutdownTracing(context.Background()) })
	}

	if a.kv, err = a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.client = apiclient.New(apiclient.Config{
		BaseURL:      cfg.APIBaseURL,
		TenantDomain: cfg.TenantDomain,
		Timeout:      cfg.HTTPTimeout,
		Retry: &retry.Config{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    200 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
		MenuCacheTTL:    cfg.MenuCacheTTL,
	}, log)

	dispatcher := worker.NewNoticeDispatcher(a.notices, worker.WriterSink{W: os.Stderr}, log, 0)
	dctx, stop := context.WithCancel(ctx)
	a.stopDispatcher = stop
	a.dispatcherDone = make(chan struct{})
	go func() {
		defer close(a.dispatcherDone)
		dispatcher.Start(dctx)
	}()

	return a, nil
}

func (a *app) openStore(ctx context.Context) (domain.KeyValueStore, error) {
	switch a.cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	case config.StorageRedis:
		if a.cfg.RedisURL == "" {
			return nil, fmt.Errorf("STORAGE_BACKEND=redis requires REDIS_URL")
		}
		client, err := redis.NewClient(ctx, a.cfg.RedisURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client.Store(a.cfg.StorageNamespace), nil
	case config.StoragePostgres:
		pool, err := database.NewConnectionPool(ctx, a.cfg.Database, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return storage.NewPostgres(pool.GetDB(), a.cfg.StorageNamespace, a.log), nil
	default:
		return storage.OpenFile(a.cfg.StatePath, a.log)
	}
}

func (a *app) sessions(ctx context.Context) (*storefront.SessionStore, error) {
	return storefront.NewSessionStore(ctx, a.kv, a.client, a.notices, a.cfg.TenantDomain, a.log)
}

func (a *app) cart(ctx context.Context) (*storefront.Cart, error) {
	return storefront.OpenCart(ctx, a.kv, a.notices, a.log)
}

// scope builds the session scope for a context name on the configured tenant
func (a *app) scope(name string) (domain.Scope, error) {
	c := domain.AuthContext(name)
	if !c.Valid() {
		return domain.Scope{}, fmt.Errorf("unknown context %q (want admin, orders or superadmin)", name)
	}
	if !c.DomainScoped() {
		return domain.Scope{Context: c}, nil
	}
	return domain.Scope{Context: c, TenantDomain: a.cfg.TenantDomain}, nil
}

// close stops the dispatcher after it printed pending notices, then
// releases the store
func (a *app) close() {
	if a.stopDispatcher != nil {
		a.stopDispatcher()
		<-a.dispatcherDone
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}
