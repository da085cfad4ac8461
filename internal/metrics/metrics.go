// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider attempt outcomes.
const (
	OutcomeOpened  = "opened"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "titanbot_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	// Completion metrics
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_provider_attempts_total",
			Help: "Completion provider open attempts",
		},
		[]string{"provider", "outcome"},
	)

	FragmentsStreamed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_fragments_streamed_total",
			Help: "Completion fragments forwarded to clients",
		},
		[]string{"provider"},
	)

	Diagnostics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_diagnostics_total",
			Help: "In-band diagnostic fragments emitted",
		},
		[]string{"reason"}, // "exhausted", "missing_key" or "mid_stream"
	)

	// Business metrics
	UsersRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_users_registered_total",
			Help: "Total accounts created",
		},
		[]string{"provider"}, // "password", "google" or "apple"
	)

	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_messages_persisted_total",
			Help: "Total turns written to storage",
		},
		[]string{"role"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "titanbot_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
