// Package observability provides logging and metrics support for the
// financial restructuring report service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for reports, pipeline stages, and LLM calls
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("request_id", reqID).Msg("report generation started")
//
// Add report context to logger:
//
//	logger = observability.WithReportContext(logger, requestID, customerID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("finrestruct")
//
// Record metrics:
//
//	metrics.RecordReportStarted()
//	metrics.RecordStageExecution("analysis", "succeeded", 1, 2.3)
//	metrics.RecordLLMRequest("openai", "gpt-4o-mini", 1.8)
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithCustomerID(ctx, customerID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: Report request identifier
//   - customer_id: Customer identifier
//   - report_id: Stored report identifier
//   - stage: Pipeline stage name (analysis, markdown, markup, document)
//   - provider: LLM provider (openai, anthropic)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
