package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	customerIDKey contextKey = "customer_id"
	reportIDKey   contextKey = "report_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithCustomerID adds a customer ID to the context.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return context.WithValue(ctx, customerIDKey, customerID)
}

// CustomerIDFromContext retrieves the customer ID from context.
// Returns empty string if not present.
func CustomerIDFromContext(ctx context.Context) string {
	if v := ctx.Value(customerIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithReportID adds a report ID to the context.
func WithReportID(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, reportIDKey, reportID)
}

// ReportIDFromContext retrieves the report ID from context.
// Returns empty string if not present.
func ReportIDFromContext(ctx context.Context) string {
	if v := ctx.Value(reportIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// ReportContext contains all the context data for one report request.
type ReportContext struct {
	RequestID  string
	CustomerID string
	ReportID   string
}

// WithReportContextFull adds all report context to the context.
func WithReportContextFull(ctx context.Context, rc ReportContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.CustomerID != "" {
		ctx = WithCustomerID(ctx, rc.CustomerID)
	}
	if rc.ReportID != "" {
		ctx = WithReportID(ctx, rc.ReportID)
	}
	return ctx
}

// ReportContextFromContext extracts all report context from the context.
func ReportContextFromContext(ctx context.Context) ReportContext {
	return ReportContext{
		RequestID:  RequestIDFromContext(ctx),
		CustomerID: CustomerIDFromContext(ctx),
		ReportID:   ReportIDFromContext(ctx),
	}
}
