// Package metrics registers the Prometheus metrics used by the gateway.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level counters and histograms.
var (
	// RequestsTotal counts completed requests labelled by provider, model, and
	// outcome ("success", "error", "rejected").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of requests processed by the gateway.",
		},
		[]string{"provider", "model", "status"},
	)

	// RequestDuration observes end-to-end request latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "End-to-end request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	// TokensInput counts total prompt tokens sent to providers.
	TokensInput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tokens_input_total",
			Help: "Total prompt tokens sent to providers.",
		},
		[]string{"provider", "model"},
	)

	// TokensOutput counts total completion tokens received from providers.
	TokensOutput = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_tokens_output_total",
			Help: "Total completion tokens received from providers.",
		},
		[]string{"provider", "model"},
	)

	// ProviderErrors counts errors broken down by provider and error type
	// ("provider_error", "circuit_open", "timeout").
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_provider_errors_total",
			Help: "Total provider errors by type.",
		},
		[]string{"provider", "error_type"},
	)

	// CircuitBreakerState tracks per-provider circuit breaker state as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed 1=open 2=half_open).",
		},
		[]string{"provider"},
	)

	// RateLimitRejections counts requests rejected by the rate-limit middleware
	// or plugin, labelled by key_type ("ip", "api_key", "plugin").
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		},
		[]string{"key_type"},
	)

	// RequestCostUSD tracks the running USD cost of served requests, labelled
	// by provider and model.
	RequestCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_request_cost_usd_total",
			Help: "Total estimated cost in USD of requests served, by provider and model.",
		},
		[]string{"provider", "model"},
	)
)

// Budget Enforcer metrics.
var (
	// BudgetRejections counts requests denied by the Budget Enforcer,
	// labelled by budget_id.
	BudgetRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_budget_rejections_total",
			Help: "Total requests rejected for exceeding a budget.",
		},
		[]string{"budget_id"},
	)

	// BudgetUtilization tracks each budget's current spend as a fraction of
	// its limit (0-1+), labelled by budget_id.
	BudgetUtilization = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_budget_utilization_ratio",
			Help: "Current spend / limit for each tracked budget.",
		},
		[]string{"budget_id"},
	)
)

// Response cache metrics.
var (
	// CacheHits counts response cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_cache_hits_total",
			Help: "Total response cache hits.",
		},
	)

	// CacheMisses counts response cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_cache_misses_total",
			Help: "Total response cache misses.",
		},
	)

	// CacheSize reports the current number of entries held in the response
	// cache.
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_cache_size",
			Help: "Current number of entries in the response cache.",
		},
	)
)

// Secret Store metrics.
var (
	// SecretFetchErrors counts failed secret lookups, labelled by backend
	// kind ("local-env", "cloud-managed-a", "cloud-managed-b", "self-hosted").
	SecretFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_secret_fetch_errors_total",
			Help: "Total failed secret lookups by backend kind.",
		},
		[]string{"backend"},
	)
)
