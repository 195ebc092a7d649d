package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a provider failure for retry decisions.
type Kind string

const (
	// KindTimeout indicates a request that exceeded its deadline.
	KindTimeout Kind = "timeout"

	// KindRateLimited indicates the provider rejected the request with 429.
	KindRateLimited Kind = "rate_limited"

	// KindServiceUnavailable indicates a provider server error (5xx) or a
	// transport failure where no HTTP response was received.
	KindServiceUnavailable Kind = "service_unavailable"

	// KindInvalidResponse indicates the provider answered but the payload
	// could not be used (malformed JSON, empty content, unexpected shape).
	KindInvalidResponse Kind = "invalid_response"

	// KindAuthentication indicates rejected credentials (401, 403).
	KindAuthentication Kind = "authentication_error"
)

// Error represents a failed call to an LLM provider API.
type Error struct {
	// Kind is the failure classification.
	Kind Kind
	// Provider is the name of the LLM provider (e.g., "openai", "anthropic").
	Provider string
	// StatusCode is the HTTP status code returned by the API.
	// Zero means no HTTP response was received.
	StatusCode int
	// Message is the error message from the API or transport.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Retryable returns true if the failure may succeed on a later attempt.
// Timeouts, rate limiting, and server or transport failures are retryable.
// Authentication failures and malformed responses are not.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// kindFromStatus maps an HTTP status code to a failure kind.
func kindFromStatus(statusCode int) Kind {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return KindAuthentication
	case statusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case statusCode >= 500:
		return KindServiceUnavailable
	default:
		return KindInvalidResponse
	}
}

// transportError classifies an error returned by http.Client.Do, where no
// HTTP response was received. Deadline expiry maps to KindTimeout; everything
// else is treated as the provider being unreachable.
func transportError(provider string, err error) *Error {
	kind := KindServiceUnavailable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{
		Kind:       kind,
		Provider:   provider,
		StatusCode: 0,
		Message:    err.Error(),
	}
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}
