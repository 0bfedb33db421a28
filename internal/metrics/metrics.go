// Package metrics defines all custom Prometheus metrics for the hobbyist API.
// Metrics are registered with the default registry on package init through
// promauto and served by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hobbyist"

// ── Validation ────────────────────────────────────────────────────────────────

// ValidationsTotal counts Validate calls.
// Labels:
//   - category: rule category, e.g. "booking_creation"
//   - outcome: "valid", "invalid" or "halted" (stopped on a critical error)
var ValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validations_total",
		Help:      "Total number of business rule validations, by category and outcome.",
	},
	[]string{"category", "outcome"},
)

// ValidationRuleErrorsTotal counts rules that failed to execute.
var ValidationRuleErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "validation_rule_errors_total",
		Help:      "Total number of rule executions that returned an error or panicked.",
	},
	[]string{"category", "rule"},
)

// ── Errors ────────────────────────────────────────────────────────────────────

// ErrorsTotal counts errors normalized by the tracker.
var ErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of handled errors, by code and HTTP status.",
	},
	[]string{"code", "status"},
)

// ErrorAlertsTotal counts error-pattern alerts.
var ErrorAlertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "error_alerts_total",
		Help:      "Total number of error pattern alerts raised.",
	},
	[]string{"kind"},
)

// ── Resilience ────────────────────────────────────────────────────────────────

// RetryAttemptsTotal counts retries scheduled after a retryable failure.
var RetryAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retry_attempts_total",
		Help:      "Total number of retries, by error code.",
	},
	[]string{"code"},
)

// CircuitBreakerState is 0 for closed, 1 for half-open and 2 for open.
var CircuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Current circuit breaker state (0 closed, 1 half-open, 2 open).",
	},
	[]string{"breaker"},
)

// ── HTTP edge ─────────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
)

// ── Bookings ──────────────────────────────────────────────────────────────────

// BookingsTotal counts booking lifecycle transitions.
// Label:
//   - action: "created", "confirmed" or "cancelled"
var BookingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Total number of booking transitions, by action.",
	},
	[]string{"action"},
)

// NotificationsPersistedTotal counts notifications written by the worker.
var NotificationsPersistedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_persisted_total",
		Help:      "Total number of booking notifications persisted.",
	},
)
