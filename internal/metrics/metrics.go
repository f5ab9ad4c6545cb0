// Package metrics holds the Prometheus collectors for the insights service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InsightsDuration tracks how long a family insights computation takes.
var InsightsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "chorequest",
	Subsystem: "insights",
	Name:      "compute_duration_seconds",
	Help:      "Time to compute insights for one family.",
	Buckets:   prometheus.DefBuckets,
})

// ChildFailures counts per-child computations that failed and were replaced
// by a zero-valued result.
var ChildFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "chorequest",
	Subsystem: "insights",
	Name:      "child_failures_total",
	Help:      "Per-child insight computations that failed.",
})

// DigestEmails counts weekly digest deliveries by outcome.
var DigestEmails = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chorequest",
	Subsystem: "digest",
	Name:      "emails_total",
	Help:      "Weekly digest emails by outcome (sent, failed, skipped).",
}, []string{"outcome"})

// DigestFamilies counts families processed by digest runs by status.
var DigestFamilies = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chorequest",
	Subsystem: "digest",
	Name:      "families_total",
	Help:      "Families processed by digest runs by status.",
}, []string{"status"})

// CacheRequests counts insights cache lookups by result.
var CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chorequest",
	Subsystem: "cache",
	Name:      "requests_total",
	Help:      "Insights cache lookups by result (hit, miss, error).",
}, []string{"result"})
