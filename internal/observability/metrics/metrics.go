package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of HTTP requests served by the API",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests served by the API",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	apiCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_client_api_call_duration_seconds",
		Help:    "Duration of calls the storefront client makes to the API",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_client_breaker_state",
		Help: "Circuit breaker state of the API client (0 closed, 1 open, 2 half-open)",
	})

	sessionOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_session_operations_total",
		Help: "Session store operations by kind and result",
	}, []string{"operation", "result"})

	migratedSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_legacy_sessions_migrated_total",
		Help: "Legacy sessions rewritten into domain-scoped keys",
	})

	cartMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation",
	}, []string{"operation"})

	noticesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notices_delivered_total",
		Help: "User notices delivered by kind",
	}, []string{"kind"})

	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders accepted by the API per tenant",
	}, []string{"tenant"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_login_attempts_total",
		Help: "Login attempts handled by the API",
	}, []string{"result"})

	feedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_order_feed_subscribers",
		Help: "Open order feed websocket connections",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAPICall records one client call, after retries
func ObserveAPICall(operation, result string, duration time.Duration) {
	apiCallDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// SetBreakerState mirrors the client's circuit breaker state
func SetBreakerState(state int) {
	breakerState.Set(float64(state))
}

func ObserveSessionOperation(operation, result string) {
	sessionOperations.WithLabelValues(operation, result).Inc()
}

func AddMigratedSessions(n int) {
	if n > 0 {
		migratedSessions.Add(float64(n))
	}
}

func ObserveCartMutation(operation string) {
	cartMutations.WithLabelValues(operation).Inc()
}

func ObserveNotice(kind string) {
	noticesDelivered.WithLabelValues(kind).Inc()
}

func ObserveOrderPlaced(tenant string) {
	ordersPlaced.WithLabelValues(tenant).Inc()
}

func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// FeedSubscribed adjusts the order feed gauge by delta
func FeedSubscribed(delta int) {
	feedSubscribers.Add(float64(delta))
}
