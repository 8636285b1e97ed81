// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SourceAttempts counts data-source fetch attempts by strategy and outcome.
	SourceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_attempts_total",
			Help: "Data source fetch attempts",
		},
		[]string{"source", "result"},
	)

	// SourceFallbacks counts fetches that fell through to a later strategy.
	SourceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fallbacks_total",
			Help: "Fetches served by a fallback data source",
		},
		[]string{"source"},
	)

	// ExportsTotal counts export renders by format and outcome.
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Conversation exports rendered",
		},
		[]string{"format", "result"},
	)

	// ExportRows observes the number of rows per export.
	ExportRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_rows",
			Help:    "Rows per conversation export",
			Buckets: []float64{10, 100, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"format"},
	)

	// RealtimeEvents counts realtime events by subject kind and direction.
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Realtime events published or received",
		},
		[]string{"kind", "direction"},
	)

	// BulkOperations counts rows processed by bulk operations.
	BulkOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_operation_rows_total",
			Help: "Rows processed by bulk operations",
		},
		[]string{"operation", "result"},
	)

	// AnalyticsCache counts analytics cache lookups.
	AnalyticsCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_cache_total",
			Help: "Analytics snapshot cache lookups",
		},
		[]string{"result"},
	)

	// LLMRequestDuration tracks summary generation latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSourceAttempt records one strategy attempt.
func RecordSourceAttempt(source string, err error) {
	SourceAttempts.WithLabelValues(source, result(err)).Inc()
}

// RecordExport records one export render.
func RecordExport(format string, rows int, err error) {
	ExportsTotal.WithLabelValues(format, result(err)).Inc()
	if err == nil {
		ExportRows.WithLabelValues(format).Observe(float64(rows))
	}
}

// RecordLLMRequest records one LLM completion.
func RecordLLMRequest(model string, duration float64, err error) {
	LLMRequestDuration.WithLabelValues(model, result(err)).Observe(duration)
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
