package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

var (
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart mutations by operation and outcome",
		},
		[]string{"operation", "result"},
	)

	PricingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_duration_seconds",
			Help:    "Duration of a full cart pricing pass in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	PricingStockIssuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_stock_issues_total",
			Help: "Total number of priced lines clamped to stock or removed from the catalog",
		},
		[]string{"kind"},
	)

	CheckoutTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Total number of checkout state transitions",
		},
		[]string{"from", "to", "reason"},
	)

	CheckoutSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_sessions_active",
			Help: "Number of checkout sessions held in memory",
		},
	)

	PaymentIntentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of payment intents created",
		},
	)

	PaymentResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_results_total",
			Help: "Total number of payment outcomes",
		},
		[]string{"outcome"},
	)

	PaymentWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_wait_duration_seconds",
			Help:    "Time spent waiting for a payment verdict in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	OrdersRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_recorded_total",
			Help: "Total number of orders written",
		},
	)

	OrderPersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_persistence_failures_total",
			Help: "Total number of paid orders that could not be written",
		},
	)
)

var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query_type", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	DBConnectionsMax = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_max",
			Help: "Configured maximum of open database connections, 0 for unlimited",
		},
	)

	DBConnectionWaitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_connection_waits_total",
			Help: "Total number of queries that waited for a free database connection",
		},
	)

	DBConnectionWaitSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_connection_wait_seconds_total",
			Help: "Total time spent waiting for a free database connection",
		},
	)
)

var (
	RedisCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Duration of Redis commands in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"command"},
	)
)

func TimeDBQuery(queryType, table string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		DBQueryDuration.WithLabelValues(queryType, table).Observe(duration)
	}
}

func TimeRedisCommand(command string) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		RedisCommandDuration.WithLabelValues(command).Observe(duration)
	}
}

func TimePricing() func() {
	start := time.Now()
	return func() {
		PricingDuration.Observe(time.Since(start).Seconds())
	}
}

func RecordStockIssues(clamped, removed int) {
	if clamped > 0 {
		PricingStockIssuesTotal.WithLabelValues("clamped").Add(float64(clamped))
	}
	if removed > 0 {
		PricingStockIssuesTotal.WithLabelValues("removed").Add(float64(removed))
	}
}

func RecordCartOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartOperationsTotal.WithLabelValues(operation, result).Inc()
}

func RecordCheckoutTransition(from, to, reason string) {
	if reason == "" {
		reason = "none"
	}
	CheckoutTransitionsTotal.WithLabelValues(from, to, reason).Inc()
}

func SetActiveSessions(n int) {
	CheckoutSessionsActive.Set(float64(n))
}

func RecordPaymentIntent() {
	PaymentIntentsTotal.Inc()
}

func RecordPaymentResult(outcome string) {
	PaymentResultsTotal.WithLabelValues(outcome).Inc()
}

func RecordOrderRecorded() {
	OrdersRecordedTotal.Inc()
}

func RecordOrderPersistenceFailure() {
	OrderPersistenceFailuresTotal.Inc()
}
