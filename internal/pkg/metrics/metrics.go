// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "jobgarden"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// DBPoolAcquires mirrors the pool's cumulative acquire counters.
	DBPoolAcquires = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "db",
			Name:      "pool_acquires",
			Help:      "Cumulative connection acquires by outcome",
		},
		[]string{"outcome"},
	)

	// AuthzDenials counts authorization denials by action.
	AuthzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "authz",
			Name:      "denials_total",
			Help:      "Authorization denials by action",
		},
		[]string{"action"},
	)

	// ApplicationsSubmitted counts successfully submitted applications.
	ApplicationsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "applications",
			Name:      "submitted_total",
			Help:      "Applications successfully submitted",
		},
	)

	// ApplicationConflicts counts submissions rejected as duplicates.
	ApplicationConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "applications",
			Name:      "conflicts_total",
			Help:      "Submissions rejected because the candidate already applied to the job",
		},
	)

	// ApplicationStatusChanges counts status assignments by new status.
	ApplicationStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "applications",
			Name:      "status_changes_total",
			Help:      "Application status assignments by resulting status",
		},
		[]string{"status"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter by route",
		},
		[]string{"route"},
	)
)
