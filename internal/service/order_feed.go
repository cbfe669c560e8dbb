package service

import (
	"log/slog"
	"sync"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
)

const feedBuffer = 16

// OrderFeed fans new orders out to subscribers of the same tenant
type OrderFeed struct {
	mu     sync.Mutex
	subs   map[string]map[chan domain.Order]struct{} // by tenant
	logger *slog.Logger
}

func NewOrderFeed(logger *slog.Logger) *OrderFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderFeed{subs: make(map[string]map[chan domain.Order]struct{}), logger: logger}
}

// Subscribe registers a listener for tenantDomain. The returned cancel
// func unregisters it and closes the channel; it is safe to call twice.
func (f *OrderFeed) Subscribe(tenantDomain string) (<-chan domain.Order, func()) {
	ch := make(chan domain.Order, feedBuffer)

	f.mu.Lock()
	if f.subs[tenantDomain] == nil {
		f.subs[tenantDomain] = make(map[chan domain.Order]struct{})
	}
	f.subs[tenantDomain][ch] = struct{}{}
	f.mu.Unlock()
	metrics.FeedSubscribed(1)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs[tenantDomain], ch)
			if len(f.subs[tenantDomain]) == 0 {
				delete(f.subs, tenantDomain)
			}
			f.mu.Unlock()
			close(ch)
			metrics.FeedSubscribed(-1)
		})
	}
}

// Publish delivers order to every subscriber of its tenant. A subscriber
// whose buffer is full misses the order.
func (f *OrderFeed) Publish(order domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[order.TenantDomain] {
		select {
		case ch <- order:
		default:
			f.logger.Warn("order feed subscriber lagging, dropping order",
				slog.String("tenant", order.TenantDomain),
				slog.String("order_id", order.ID),
			)
		}
	}
}

// Subscribers returns the number of listeners for tenantDomain
func (f *OrderFeed) Subscribers(tenantDomain string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[tenantDomain])
}
