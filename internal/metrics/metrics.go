package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindwell_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindwell_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Triage metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindwell_turns_total",
			Help: "Settled turns by category",
		},
		[]string{"category"},
	)

	CrisisEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindwell_crisis_escalations_total",
			Help: "Turns answered with the crisis template",
		},
	)

	RejectedSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindwell_rejected_submissions_total",
			Help: "Submissions that did not settle",
		},
		[]string{"reason"}, // "invalid_input", "store_unavailable", "canceled"
	)

	// Store metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindwell_store_latency_seconds",
			Help:    "Conversation store operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"driver", "op"},
	)

	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindwell_store_failures_total",
			Help: "Conversation store operations that failed",
		},
		[]string{"driver", "op"},
	)
)
