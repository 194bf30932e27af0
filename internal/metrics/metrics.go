// Package metrics holds the Prometheus instruments exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.ngs.io/waves-api/internal/domain"
)

var (
	// Matching
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waves_match_duration_seconds",
			Help:    "Duration of observation/field matching runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sampling"},
	)

	MatchObservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waves_match_observations_total",
			Help: "Observations processed by the matcher, by result",
		},
		[]string{"result"}, // matched, unmatched, skipped, duplicate
	)

	MatchRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waves_match_runs_total",
			Help: "Matching runs by outcome",
		},
		[]string{"outcome"},
	)

	// Spectra
	SpectraRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waves_spectra_records_total",
			Help: "Spectrum records parsed, by format",
		},
		[]string{"format"},
	)

	SpectraSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waves_spectra_skipped_total",
			Help: "Spectrum blocks or headers rejected while parsing",
		},
		[]string{"format", "reason"}, // block, header, file
	)

	// Stores
	FieldLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waves_field_load_duration_seconds",
			Help:    "Time to read a gridded field stack from NetCDF",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"},
	)

	// API
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waves_api_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	APIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waves_api_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)

// RecordMatch records one matching run.
func RecordMatch(sampling string, duration time.Duration, matched, unmatched, skipped, duplicates int, outcome domain.Outcome) {
	MatchDuration.WithLabelValues(sampling).Observe(duration.Seconds())
	MatchObservations.WithLabelValues("matched").Add(float64(matched))
	MatchObservations.WithLabelValues("unmatched").Add(float64(unmatched))
	MatchObservations.WithLabelValues("skipped").Add(float64(skipped))
	MatchObservations.WithLabelValues("duplicate").Add(float64(duplicates))
	MatchRuns.WithLabelValues(string(outcome)).Inc()
}

// RecordSpectra records the outcome of one parse.
func RecordSpectra(format string, records, skippedBlocks, malformedHeaders, skippedFiles int) {
	SpectraRecords.WithLabelValues(format).Add(float64(records))
	SpectraSkipped.WithLabelValues(format, "block").Add(float64(skippedBlocks))
	SpectraSkipped.WithLabelValues(format, "header").Add(float64(malformedHeaders))
	SpectraSkipped.WithLabelValues(format, "file").Add(float64(skippedFiles))
}

// RecordFieldLoad records the time spent reading a field stack.
func RecordFieldLoad(backend string, duration time.Duration) {
	FieldLoadDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
