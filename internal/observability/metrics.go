// Package observability exposes prometheus metrics for the decision engines.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estatelane",
		Subsystem: "access",
		Name:      "decisions_total",
		Help:      "Access decisions by operation and outcome.",
	}, []string{"operation", "allowed"})

	LimitChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estatelane",
		Subsystem: "entitlement",
		Name:      "limit_checks_total",
		Help:      "Feature limit checks by feature and outcome.",
	}, []string{"feature", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "estatelane",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// LimitOutcome buckets a check result for the metric label.
func LimitOutcome(canProceed bool, unlimited bool) string {
	switch {
	case unlimited:
		return "unlimited"
	case canProceed:
		return "allowed"
	default:
		return "blocked"
	}
}
