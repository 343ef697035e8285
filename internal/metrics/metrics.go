package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests tracks API requests per handler and status code
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status"},
	)

	// HTTPRequestDuration tracks API request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapmatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// DependencyRequests tracks calls to sibling services
	DependencyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_dependency_requests_total",
			Help: "Total number of dependency calls",
		},
		[]string{"dependency", "status"},
	)

	// DependencyRequestDuration tracks dependency call latency
	DependencyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapmatch_dependency_request_duration_seconds",
			Help:    "Dependency call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dependency"},
	)

	// CircuitBreakerState exposes breaker state per dependency
	// (0 = closed, 1 = open, 2 = half_open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapmatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half_open)",
		},
		[]string{"dependency"},
	)

	// CircuitBreakerFailures counts failures recorded by breakers
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_circuit_breaker_failures_total",
			Help: "Total number of failures recorded by circuit breakers",
		},
		[]string{"dependency"},
	)

	// RetryAttempts counts dependency call attempts by attempt number
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_retry_attempts_total",
			Help: "Total number of dependency call attempts",
		},
		[]string{"dependency", "attempt"},
	)

	// RetrySuccess counts calls that succeeded after at least one retry
	RetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_retry_success_total",
			Help: "Total number of calls that succeeded after retrying",
		},
		[]string{"dependency"},
	)

	// SideEffectFailures counts dropped best-effort side effects
	SideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_side_effect_failures_total",
			Help: "Total number of failed best-effort side effects",
		},
		[]string{"kind"},
	)

	// OffersCreated counts trade offers created
	OffersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapmatch_trade_offers_created_total",
			Help: "Total number of trade offers created",
		},
	)

	// OfferTransitions counts lifecycle transitions by target status
	OfferTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapmatch_trade_offer_transitions_total",
			Help: "Total number of trade offer status transitions",
		},
		[]string{"status"},
	)

	// OffersByStatus tracks the current number of offers per status
	OffersByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapmatch_trade_offers_by_status",
			Help: "Current number of trade offers per status",
		},
		[]string{"status"},
	)

	// DuplicateCreates counts creations rejected by the idempotency guard
	DuplicateCreates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swapmatch_duplicate_creates_total",
			Help: "Total number of offer creations rejected as duplicates",
		},
	)

	// ActiveUsers tracks users with an open trade in flight
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swapmatch_active_users",
			Help: "Number of distinct proposers with pending or accepted offers",
		},
	)

	// DBConnectionPoolUsage tracks connection pool saturation
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swapmatch_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
