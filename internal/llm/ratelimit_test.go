package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that RateLimitedClient implements Client.
var _ Client = (*RateLimitedClient)(nil)

// stubClient is a canned Client for wrapper tests.
type stubClient struct {
	text  string
	err   error
	calls int
}

func (s *stubClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubClient) Provider() string { return "stub" }
func (s *stubClient) Model() string    { return "stub-model" }

func TestRateLimitedClient_Generate(t *testing.T) {
	t.Run("delegates to wrapped client", func(t *testing.T) {
		stub := &stubClient{text: "generated"}
		client := NewRateLimitedClient(stub, 100, 10)

		text, err := client.Generate(context.Background(), "prompt", GenerateOptions{})

		require.NoError(t, err)
		assert.Equal(t, "generated", text)
		assert.Equal(t, 1, stub.calls)
	})

	t.Run("returns context error when wait is cancelled", func(t *testing.T) {
		stub := &stubClient{text: "generated"}
		// One token per hour with the bucket already drained.
		client := NewRateLimitedClient(stub, 1.0/3600, 1)
		require.True(t, client.limiter.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Generate(ctx, "prompt", GenerateOptions{})

		require.Error(t, err)
		assert.Equal(t, 0, stub.calls, "wrapped client must not be called when the wait fails")
	})

	t.Run("burst allows consecutive calls", func(t *testing.T) {
		stub := &stubClient{text: "ok"}
		client := NewRateLimitedClient(stub, 1, 3)

		for i := 0; i < 3; i++ {
			_, err := client.Generate(context.Background(), "prompt", GenerateOptions{})
			require.NoError(t, err)
		}
		assert.Equal(t, 3, stub.calls)
	})
}

func TestRateLimitedClient_Metadata(t *testing.T) {
	client := NewRateLimitedClient(&stubClient{}, 5, 10)

	assert.Equal(t, "stub", client.Provider())
	assert.Equal(t, "stub-model", client.Model())
	assert.InDelta(t, 10, client.Tokens(), 0.01)
}
