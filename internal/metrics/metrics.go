package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestCounter counts HTTP requests by status code, method, and route
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"status", "method", "path"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pool_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status", "method", "path"},
	)

	// RequestInProgress counts HTTP requests currently being processed
	RequestInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_http_requests_in_progress",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "path"},
	)

	// PickSubmissions counts pick batches by outcome (accepted, stale, conflict, invalid, error)
	PickSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_pick_submissions_total",
			Help: "Total number of pick submissions by outcome",
		},
		[]string{"outcome"},
	)

	// PublishAttempts counts publish requests by tier and outcome
	PublishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_publish_attempts_total",
			Help: "Total number of publish attempts",
		},
		[]string{"tier", "outcome"},
	)

	// GradingBatches counts applied grading submissions
	GradingBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_grading_batches_total",
			Help: "Total number of grading batches applied",
		},
	)

	// ParticipantsCreated counts new participant identities
	ParticipantsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_participants_created_total",
			Help: "Total number of participants created",
		},
	)

	// TxDuration measures store transaction duration
	TxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pool_store_tx_duration_seconds",
			Help:    "Store transaction duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// PromptCacheHits counts example prompt cache hits
	PromptCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_prompt_cache_hits_total",
			Help: "Total number of example prompt cache hits",
		},
	)

	// PromptCacheMisses counts example prompt cache misses
	PromptCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pool_prompt_cache_misses_total",
			Help: "Total number of example prompt cache misses",
		},
	)
)

// RecordTx records the duration of a store transaction
func RecordTx(operation string, startTime time.Time) {
	TxDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
}
