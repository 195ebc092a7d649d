package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that OpenAIClient implements Client.
var _ Client = (*OpenAIClient)(nil)

// newOpenAITestServer creates an httptest server that responds with the given handler.
func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// newOpenAITestClient creates an OpenAIClient configured to use the test server.
func newOpenAITestClient(t *testing.T, serverURL string) *OpenAIClient {
	t.Helper()
	cfg := OpenAIConfig{
		APIKey:  "test-api-key",
		Model:   "gpt-4o-mini",
		BaseURL: serverURL,
	}
	return NewOpenAIClient(cfg, 10*time.Second)
}

func TestOpenAIClient_Generate(t *testing.T) {
	t.Run("successful generation returns content", func(t *testing.T) {
		var receivedReq chatRequest
		var receivedAuthHeader string
		var receivedContentType string

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			receivedAuthHeader = r.Header.Get("Authorization")
			receivedContentType = r.Header.Get("Content-Type")

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			defer r.Body.Close()

			err = json.Unmarshal(body, &receivedReq)
			require.NoError(t, err)

			resp := chatResponse{
				ID: "chatcmpl-abc123",
				Choices: []chatChoice{
					{
						Index: 0,
						Message: chatMessage{
							Role:    "assistant",
							Content: `{"customer_id": "cust-42", "current_credit_score": 612}`,
						},
						FinishReason: "stop",
					},
				},
				Usage: chatUsage{
					PromptTokens:     150,
					CompletionTokens: 45,
					TotalTokens:      195,
				},
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)

		text, err := client.Generate(context.Background(), "Analyze this debt portfolio.", GenerateOptions{
			Temperature: 0.2,
			MaxTokens:   2048,
		})

		require.NoError(t, err)
		assert.Equal(t, `{"customer_id": "cust-42", "current_credit_score": 612}`, text)

		// Verify request was correctly formed.
		assert.Equal(t, "Bearer test-api-key", receivedAuthHeader)
		assert.Equal(t, "application/json", receivedContentType)
		assert.Equal(t, "gpt-4o-mini", receivedReq.Model)
		assert.Equal(t, 0.2, receivedReq.Temperature)
		assert.Equal(t, 2048, receivedReq.MaxTokens)

		require.Len(t, receivedReq.Messages, 1)
		assert.Equal(t, "user", receivedReq.Messages[0].Role)
		assert.Equal(t, "Analyze this debt portfolio.", receivedReq.Messages[0].Content)
	})

	t.Run("zero max tokens falls back to provider default", func(t *testing.T) {
		var receivedReq chatRequest

		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			defer r.Body.Close()

			err = json.Unmarshal(body, &receivedReq)
			require.NoError(t, err)

			resp := chatResponse{
				Choices: []chatChoice{
					{Message: chatMessage{Role: "assistant", Content: "ok"}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Generate(context.Background(), "prompt", GenerateOptions{})

		require.NoError(t, err)
		assert.Equal(t, defaultOpenAIMaxTokens, receivedReq.MaxTokens)
	})

	t.Run("context cancellation stops request", func(t *testing.T) {
		started := make(chan struct{})
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			close(started)
			<-r.Context().Done()
		})

		client := newOpenAITestClient(t, server.URL)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()

		_, err := client.Generate(ctx, "test prompt", GenerateOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("timeout maps to timeout kind", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			// Simulate a slow upstream that never answers in time.
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		})

		cfg := OpenAIConfig{APIKey: "test-api-key", BaseURL: server.URL}
		client := NewOpenAIClient(cfg, 50*time.Millisecond)

		_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})
		require.Error(t, err)

		llmErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindTimeout, llmErr.Kind)
		assert.True(t, llmErr.Retryable())
	})

	t.Run("exactly one request per call on server error", func(t *testing.T) {
		requestCount := 0
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			requestCount++
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"message": "boom", "type": "server_error"}}`))
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})

		require.Error(t, err)
		assert.Equal(t, 1, requestCount, "client must not retry internally")
	})
}

func TestOpenAIClient_Generate_APIError(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		responseBody   string
		wantKind       Kind
		wantRetryable  bool
		wantErrContain string
	}{
		{
			name:       "401 unauthorized with structured error",
			statusCode: http.StatusUnauthorized,
			responseBody: `{
				"error": {
					"message": "Incorrect API key provided: test-a...key.",
					"type": "invalid_request_error",
					"code": "invalid_api_key"
				}
			}`,
			wantKind:       KindAuthentication,
			wantRetryable:  false,
			wantErrContain: "Incorrect API key provided",
		},
		{
			name:           "403 forbidden with non-JSON body",
			statusCode:     http.StatusForbidden,
			responseBody:   "Forbidden: access denied",
			wantKind:       KindAuthentication,
			wantRetryable:  false,
			wantErrContain: "Forbidden: access denied",
		},
		{
			name:           "429 rate limit",
			statusCode:     http.StatusTooManyRequests,
			responseBody:   `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`,
			wantKind:       KindRateLimited,
			wantRetryable:  true,
			wantErrContain: "Rate limit exceeded",
		},
		{
			name:           "500 internal server error",
			statusCode:     http.StatusInternalServerError,
			responseBody:   `{"error": {"message": "Internal server error", "type": "server_error"}}`,
			wantKind:       KindServiceUnavailable,
			wantRetryable:  true,
			wantErrContain: "Internal server error",
		},
		{
			name:           "503 service unavailable",
			statusCode:     http.StatusServiceUnavailable,
			responseBody:   `{"error": {"message": "Service temporarily unavailable", "type": "server_error"}}`,
			wantKind:       KindServiceUnavailable,
			wantRetryable:  true,
			wantErrContain: "Service temporarily unavailable",
		},
		{
			name:           "400 bad request",
			statusCode:     http.StatusBadRequest,
			responseBody:   `{"error": {"message": "Invalid model specified.", "type": "invalid_request_error"}}`,
			wantKind:       KindInvalidResponse,
			wantRetryable:  false,
			wantErrContain: "Invalid model specified",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.responseBody))
			})

			client := newOpenAITestClient(t, server.URL)
			_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrContain)

			llmErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, llmErr.Kind)
			assert.Equal(t, tt.statusCode, llmErr.StatusCode)
			assert.Equal(t, "openai", llmErr.Provider)
			assert.Equal(t, tt.wantRetryable, llmErr.Retryable())
		})
	}
}

func TestOpenAIClient_Generate_InvalidResponse(t *testing.T) {
	t.Run("malformed JSON response body", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`not valid json at all`))
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})

		require.Error(t, err)
		llmErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidResponse, llmErr.Kind)
		assert.False(t, llmErr.Retryable())
	})

	t.Run("empty choices array", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatResponse{ID: "chatcmpl-nochoices", Choices: []chatChoice{}}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})

		require.Error(t, err)
		llmErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidResponse, llmErr.Kind)
		assert.Contains(t, llmErr.Message, "empty choices")
	})

	t.Run("empty message content", func(t *testing.T) {
		server := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			resp := chatResponse{
				Choices: []chatChoice{
					{Message: chatMessage{Role: "assistant", Content: ""}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		})

		client := newOpenAITestClient(t, server.URL)
		_, err := client.Generate(context.Background(), "test prompt", GenerateOptions{})

		require.Error(t, err)
		llmErr, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, KindInvalidResponse, llmErr.Kind)
	})
}

func TestOpenAIClient_Provider(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{}, 30*time.Second)
	assert.Equal(t, "openai", client.Provider())
}

func TestOpenAIClient_Model(t *testing.T) {
	t.Run("returns configured model", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{Model: "gpt-4o"}, 30*time.Second)
		assert.Equal(t, "gpt-4o", client.Model())
	})

	t.Run("returns default model when not configured", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{}, 30*time.Second)
		assert.Equal(t, defaultOpenAIModel, client.Model())
	})
}

func TestNewOpenAIClient(t *testing.T) {
	t.Run("applies default values for empty config", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{}, 0)

		assert.Equal(t, defaultOpenAIBaseURL, client.baseURL)
		assert.Equal(t, defaultOpenAIModel, client.model)
		assert.NotNil(t, client.httpClient)
		assert.Equal(t, 60*time.Second, client.httpClient.Timeout)
	})

	t.Run("uses provided config values", func(t *testing.T) {
		cfg := OpenAIConfig{
			APIKey:  "sk-test-key",
			Model:   "gpt-4o",
			BaseURL: "https://custom-api.example.com/v1",
		}
		client := NewOpenAIClient(cfg, 45*time.Second)

		assert.Equal(t, "https://custom-api.example.com/v1", client.baseURL)
		assert.Equal(t, "gpt-4o", client.model)
		assert.Equal(t, "sk-test-key", client.apiKey)
		assert.Equal(t, 45*time.Second, client.httpClient.Timeout)
	})
}
