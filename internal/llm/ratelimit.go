package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client with a token bucket rate limiter so that
// outbound provider calls stay within a configured request rate. It is safe
// for concurrent use because the underlying rate.Limiter is goroutine-safe.
type RateLimitedClient struct {
	inner   Client
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps client with a rate limiter.
// ratePerSecond is the sustained rate of requests per second.
// burst is the maximum burst size (number of tokens that can be consumed at once).
func NewRateLimitedClient(client Client, ratePerSecond float64, burst int) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Generate waits for a rate limiter token, then delegates to the wrapped
// client. It returns the context error if the wait is cancelled.
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.inner.Generate(ctx, prompt, opts)
}

// Provider returns the wrapped client's provider name.
func (c *RateLimitedClient) Provider() string {
	return c.inner.Provider()
}

// Model returns the wrapped client's model identifier.
func (c *RateLimitedClient) Model() string {
	return c.inner.Model()
}

// Tokens returns the current number of available tokens.
// This can be useful for monitoring and debugging.
func (c *RateLimitedClient) Tokens() float64 {
	return c.limiter.Tokens()
}
