package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the report service.
// Metrics are organized by subsystem: reports, pipeline stages, LLM operations,
// rendering, and HTTP. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// ReportsStarted counts the total number of report generations initiated.
	ReportsStarted prometheus.Counter

	// ReportsCompleted counts finished report generations, labeled by terminal status.
	ReportsCompleted *prometheus.CounterVec

	// ReportDuration observes the end-to-end duration of report generation in seconds.
	ReportDuration prometheus.Histogram

	// StageExecutions counts stage runs, labeled by stage and terminal status.
	StageExecutions *prometheus.CounterVec

	// StageDuration observes per-stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// StageAttempts observes the number of attempts a stage needed, labeled by stage.
	StageAttempts *prometheus.HistogramVec

	// StageFallbacks counts fallback-producer invocations, labeled by stage.
	StageFallbacks *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by provider and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by provider, model, and failure kind.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by provider and model.
	LLMRequestDuration *prometheus.HistogramVec

	// RendersTotal counts document render operations.
	RendersTotal prometheus.Counter

	// RendersFailed counts document render operations that returned an error.
	RendersFailed prometheus.Counter

	// RenderDuration observes document render duration in seconds.
	RenderDuration prometheus.Histogram

	// ArtifactBytes observes the size of produced artifacts in bytes.
	ArtifactBytes prometheus.Histogram

	// HTTPRequestsTotal counts HTTP requests, labeled by method, path, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method and path.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Reports
		ReportsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_started_total",
			Help:      "Total number of report generations started",
		}),
		ReportsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_completed_total",
			Help:      "Total number of report generations finished by terminal status",
		}, []string{"status"}),
		ReportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "Duration of report generation in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		// Stages
		StageExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_executions_total",
			Help:      "Total number of stage executions by stage and terminal status",
		}, []string{"stage", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageAttempts: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_attempts",
			Help:      "Number of attempts a stage needed before reaching a terminal status",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"stage"}),
		StageFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_fallbacks_total",
			Help:      "Total number of fallback-producer invocations by stage",
		}, []string{"stage"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by provider and model",
		}, []string{"provider", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by provider and failure kind",
		}, []string{"provider", "model", "kind"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),

		// Rendering
		RendersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Total number of document render operations",
		}),
		RendersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_failed_total",
			Help:      "Total number of document render operations that failed",
		}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of document rendering in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ArtifactBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_bytes",
			Help:      "Size of produced report artifacts in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"method", "path"}),
	}
}

// RecordReportStarted records that a report generation has started.
func (m *Metrics) RecordReportStarted() {
	m.ReportsStarted.Inc()
}

// RecordReportCompleted records a finished report generation with its terminal status.
func (m *Metrics) RecordReportCompleted(status string, durationSeconds float64) {
	m.ReportsCompleted.WithLabelValues(status).Inc()
	m.ReportDuration.Observe(durationSeconds)
}

// RecordStageExecution records a stage reaching a terminal status.
func (m *Metrics) RecordStageExecution(stage, status string, attempts int, durationSeconds float64) {
	m.StageExecutions.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
	m.StageAttempts.WithLabelValues(stage).Observe(float64(attempts))
}

// RecordStageFallback records a fallback-producer invocation for a stage.
func (m *Metrics) RecordStageFallback(stage string) {
	m.StageFallbacks.WithLabelValues(stage).Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(provider, model string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, model).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(provider, model, kind string) {
	m.LLMRequestsFailed.WithLabelValues(provider, model, kind).Inc()
}

// RecordRender records a document render operation.
func (m *Metrics) RecordRender(durationSeconds float64, artifactBytes int) {
	m.RendersTotal.Inc()
	m.RenderDuration.Observe(durationSeconds)
	m.ArtifactBytes.Observe(float64(artifactBytes))
}

// RecordRenderFailed records a failed document render operation.
func (m *Metrics) RecordRenderFailed() {
	m.RendersFailed.Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}
