// Package metrics declares the Prometheus collectors of the service. All
// collectors register with the default registry, which /metrics exposes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP traffic. The path label is the registered route, never the raw URL.
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(200, 2.5, 10),
		},
		[]string{"method", "path"},
	)
)

// Review pipeline.
var (
	ReviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Reviews accepted for analysis, by subject kind.",
		},
		[]string{"kind"},
	)

	AnalysisOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_analysis_total",
			Help: "Completed content analyses by subject kind and outcome (approved, flagged, skipped).",
		},
		[]string{"kind", "outcome"},
	)

	AnalyzerFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_analyzer_fallbacks_total",
			Help: "Analyses that failed and fell back to the clean verdict.",
		},
	)

	AutoFlags = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_auto_flags_total",
			Help: "Flags raised by the analyzer, by flag type.",
		},
		[]string{"flag_type"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_analysis_duration_seconds",
			Help:    "Time spent analyzing one review.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_jobs_total",
			Help: "Analysis jobs handled by the worker, by result (done, retry, failed, requeued).",
		},
		[]string{"result"},
	)

	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Moderator actions by subject kind and action.",
		},
		[]string{"kind", "action"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejections_total",
			Help: "Requests refused by the daily quota, by action.",
		},
		[]string{"action"},
	)
)
