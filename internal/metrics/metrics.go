// Package metrics provides Prometheus metrics for the trend pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SourceFetchTotal counts source fetches by outcome.
	SourceFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendradar",
			Name:      "source_fetch_total",
			Help:      "Total number of source fetches",
		},
		[]string{"source", "status"},
	)

	// SourceFetchDuration measures source fetch duration.
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trendradar",
			Name:      "source_fetch_duration_seconds",
			Help:      "Duration of source fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// PipelineFallbackTotal counts runs that fell back to seed data.
	PipelineFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendradar",
			Name:      "pipeline_fallback_total",
			Help:      "Total number of pipeline runs served from seed data",
		},
		[]string{"mode"},
	)

	// ExtractionFailuresTotal counts record extraction failures.
	ExtractionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendradar",
			Name:      "extraction_failures_total",
			Help:      "Total number of failed record extractions",
		},
		[]string{"stage"},
	)

	// CompletionAttemptsTotal counts text completion attempts.
	CompletionAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendradar",
			Name:      "completion_attempts_total",
			Help:      "Total number of text completion attempts",
		},
		[]string{"provider", "status"},
	)
)

// RecordFetch records one source fetch.
func RecordFetch(source, status string, seconds float64) {
	SourceFetchTotal.WithLabelValues(source, status).Inc()
	SourceFetchDuration.WithLabelValues(source).Observe(seconds)
}

// RecordFallback records a pipeline run that used seed data.
func RecordFallback(mode string) {
	PipelineFallbackTotal.WithLabelValues(mode).Inc()
}

// RecordExtractionFailure records a failed extraction.
func RecordExtractionFailure(stage string) {
	ExtractionFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordCompletion records one completion attempt.
func RecordCompletion(provider, status string) {
	CompletionAttemptsTotal.WithLabelValues(provider, status).Inc()
}
