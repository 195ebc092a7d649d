package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	// Use unique namespace to avoid conflicts with other tests
	m := NewMetrics("test_finrestruct_new")

	assert.NotNil(t, m.ReportsStarted)
	assert.NotNil(t, m.ReportsCompleted)
	assert.NotNil(t, m.ReportDuration)
	assert.NotNil(t, m.StageExecutions)
	assert.NotNil(t, m.StageDuration)
	assert.NotNil(t, m.StageAttempts)
	assert.NotNil(t, m.StageFallbacks)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.LLMRequestsFailed)
	assert.NotNil(t, m.LLMRequestDuration)
	assert.NotNil(t, m.RendersTotal)
	assert.NotNil(t, m.RendersFailed)
	assert.NotNil(t, m.ArtifactBytes)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
}

func TestRecordReportStarted(t *testing.T) {
	m := NewMetrics("test_report_started")

	initial := testutil.ToFloat64(m.ReportsStarted)
	m.RecordReportStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.ReportsStarted))
}

func TestRecordReportCompleted(t *testing.T) {
	m := NewMetrics("test_report_completed")

	m.RecordReportCompleted("succeeded", 5.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReportsCompleted.WithLabelValues("succeeded")))

	// Check histogram
	histCount, err := getHistogramSampleCount(m.ReportDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordReportCompletedDegraded(t *testing.T) {
	m := NewMetrics("test_report_degraded")

	m.RecordReportCompleted("degraded", 3.0)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReportsCompleted.WithLabelValues("degraded")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ReportsCompleted.WithLabelValues("succeeded")))
}

func TestRecordStageExecution(t *testing.T) {
	m := NewMetrics("test_stage_execution")

	m.RecordStageExecution("analysis", "succeeded", 2, 1.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageExecutions.WithLabelValues("analysis", "succeeded")))
}

func TestRecordStageFallback(t *testing.T) {
	m := NewMetrics("test_stage_fallback")

	m.RecordStageFallback("markdown")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageFallbacks.WithLabelValues("markdown")))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_llm_request")

	m.RecordLLMRequest("openai", "gpt-4o-mini", 2.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("openai", "gpt-4o-mini")))
}

func TestRecordLLMRequestFailed(t *testing.T) {
	m := NewMetrics("test_llm_request_failed")

	m.RecordLLMRequestFailed("anthropic", "claude-3-5-haiku", "rate_limited")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("anthropic", "claude-3-5-haiku", "rate_limited")))
}

func TestRecordRender(t *testing.T) {
	m := NewMetrics("test_render")

	initial := testutil.ToFloat64(m.RendersTotal)
	m.RecordRender(0.2, 40960)
	assert.Equal(t, initial+1, testutil.ToFloat64(m.RendersTotal))

	histCount, err := getHistogramSampleCount(m.ArtifactBytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordRenderFailed(t *testing.T) {
	m := NewMetrics("test_render_failed")

	initial := testutil.ToFloat64(m.RendersFailed)
	m.RecordRenderFailed()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.RendersFailed))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_http_request")

	m.RecordHTTPRequest("POST", "/api/v1/reports", "201", 0.05)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/reports", "201")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
