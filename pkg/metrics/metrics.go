// Package metrics defines and registers the execution engine's
// Prometheus metrics. The HTTP client records request counts, request
// durations and rate-limiter wait time, and the output loop counts files
// written. StageDuration, StagesTotal, CacheRequestsTotal and
// ResolvedModsTotal are registered but nothing in this module records
// to them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StageDuration tracks how long each stage worker ran, from waking
	// to broadcasting its outputs.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packforge_stage_duration_seconds",
			Help:    "Duration of a stage worker's run, by stage kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// StagesTotal counts stage completions by kind and outcome.
	StagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packforge_stages_total",
			Help: "Total stage worker completions, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// HTTPRequestsTotal counts outbound catalog API requests by host and
	// response status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packforge_http_requests_total",
			Help: "Total outbound HTTP requests, by host and status",
		},
		[]string{"host", "status"},
	)

	// HTTPRequestDuration tracks outbound catalog API request latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packforge_http_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests, by host",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// RateLimiterWaitDuration tracks how long a request waited for a
	// token bucket slot before being sent.
	RateLimiterWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "packforge_rate_limiter_wait_seconds",
			Help:    "Time spent waiting for a rate limiter token, by host",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// CacheRequestsTotal counts cache lookups by namespace and hit/miss.
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packforge_cache_requests_total",
			Help: "Total cache lookups, by namespace and result",
		},
		[]string{"namespace", "result"},
	)

	// ResolvedModsTotal counts mods resolved, by catalog source.
	ResolvedModsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packforge_resolved_mods_total",
			Help: "Total mods resolved, by source",
		},
		[]string{"source"},
	)

	// OutputFilesWritten counts files the output loop has written to disk.
	OutputFilesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "packforge_output_files_written_total",
			Help: "Total output files written to disk",
		},
	)
)

func init() {
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StagesTotal)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(RateLimiterWaitDuration)
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(ResolvedModsTotal)
	prometheus.MustRegister(OutputFilesWritten)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing an operation and recording its duration
// to a histogram once it completes.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
