package pipeline

import (
	"time"

	"github.com/lender512/financial-restructuring-service/internal/llm"
)

// RetryPolicy governs re-invocation of the LLM-calling stages. It is
// constructed once at engine initialization and read-only across requests.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations per stage, including
	// the first. Must be at least 1.
	MaxAttempts int

	// BackoffSchedule holds the delay before each retry: BackoffSchedule[0]
	// precedes attempt 2, and so on. When the schedule is shorter than the
	// retries, the last entry repeats.
	BackoffSchedule []time.Duration

	// RetryableKinds is the set of LLM failure kinds worth retrying.
	RetryableKinds map[llm.Kind]struct{}
}

// NewRetryPolicy builds a policy with the standard retryable kinds
// (timeout, rate limited, service unavailable).
func NewRetryPolicy(maxAttempts int, backoffSchedule []time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts:     maxAttempts,
		BackoffSchedule: backoffSchedule,
		RetryableKinds: map[llm.Kind]struct{}{
			llm.KindTimeout:            {},
			llm.KindRateLimited:        {},
			llm.KindServiceUnavailable: {},
		},
	}
}

// DefaultRetryPolicy returns three attempts with a 1s then 2s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return NewRetryPolicy(3, []time.Duration{time.Second, 2 * time.Second})
}

// Retryable reports whether err is a transient LLM failure under this policy.
// Anything that is not a typed LLM error is treated as permanent.
func (p RetryPolicy) Retryable(err error) bool {
	llmErr, ok := llm.AsError(err)
	if !ok {
		return false
	}
	_, retryable := p.RetryableKinds[llmErr.Kind]
	return retryable
}

// Backoff returns the delay to wait after the given failed attempt (1-based)
// before the next one. Zero when no schedule is configured.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if len(p.BackoffSchedule) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.BackoffSchedule) {
		idx = len(p.BackoffSchedule) - 1
	}
	return p.BackoffSchedule[idx]
}
