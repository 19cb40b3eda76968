// Package metrics defines and registers the custom Prometheus metrics of the
// issues API. It is the single place where metric names, labels and help
// strings live.
//
// Metrics are registered with the default registry through promauto as soon as
// the package is imported; /metrics exposes them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
)

const namespace = "issues"

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method: HTTP verb
//   - route: the matched echo route pattern (e.g. "/issues/:id")
//   - code: response status code
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests, by method, route and status code.",
	},
	[]string{"method", "route", "code"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests from routing to response.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "accepted" or "rejected"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result (accepted/rejected).",
	},
	[]string{"result"},
)

// RateLimitedTotal counts requests refused by the credential rate limiter.
// Label:
//   - route: the limited route pattern
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"route"},
)

// ── Issue metrics ─────────────────────────────────────────────────────────────

// IssueOperationsTotal counts issue use cases by outcome.
// Labels:
//   - operation: "create", "list", "get", "update" or "delete"
//   - result: "ok", "not_found", "invalid" or "error"
var IssueOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of issue operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// IssueStatusTransitionsTotal counts status changes applied by updates.
var IssueStatusTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_transitions_total",
		Help:      "Total number of issue status changes, by previous and new status.",
	},
	[]string{"from", "to"},
)

// Recorder feeds the core services' counters into the collectors above.
type Recorder struct{}

var _ ports.Metrics = Recorder{}

func (Recorder) LoginAttempt(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

func (Recorder) IssueOperation(operation, result string) {
	IssueOperationsTotal.WithLabelValues(operation, result).Inc()
}

func (Recorder) IssueStatusTransition(from, to domain.IssueStatus) {
	IssueStatusTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}
