// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shelfwatch"

var (
	ScrapeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_requests_total",
			Help:      "External metadata requests by source and result",
		},
		[]string{"source", "result"}, // result: "success", "error", "rejected", "cached"
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Latency of external metadata requests",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	FilesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_parsed_total",
			Help:      "Book files parsed by format and result",
		},
		[]string{"format", "result"},
	)

	Enrichments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Ollama enrichment attempts by result",
		},
		[]string{"result"}, // "updated", "unchanged", "error"
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Background jobs finished by type and status",
		},
		[]string{"type", "status"},
	)

	WatchlistResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watchlist_new_results_total",
			Help:      "New volumes found by watchlist checks",
		},
		[]string{"source"},
	)
)
