// Package llm provides text-generation clients for the Financial
// Restructuring Service.
//
// This package defines the abstraction used by the report pipeline to call
// large language models (OpenAI, Anthropic). A Client turns a prompt into
// generated text; the pipeline layers retries and fallbacks on top of it,
// so providers perform exactly one API attempt per call.
//
// Example usage:
//
//	client, err := llm.NewClient(llm.FactoryConfig{
//		Provider: "openai",
//		Timeout:  60 * time.Second,
//		OpenAI:   llm.OpenAIConfig{APIKey: key, Model: "gpt-4o-mini"},
//	})
//	text, err := client.Generate(ctx, prompt, llm.GenerateOptions{
//		Temperature: 0.2,
//		MaxTokens:   4096,
//	})
package llm

import "context"

// GenerateOptions are per-call parameters for text generation.
type GenerateOptions struct {
	// Temperature is the sampling temperature passed to the model.
	Temperature float64

	// MaxTokens is the maximum number of tokens the model may generate.
	// Zero means the provider default.
	MaxTokens int
}

// Client defines the interface for LLM-based text generation.
//
// Implementations perform a single API attempt per Generate call and
// classify failures as *Error so callers can decide whether to retry.
type Client interface {
	// Generate produces text for the given prompt.
	// The context should be used for cancellation and deadline propagation.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Return *Error for provider and transport failures
	//   - Never retry internally
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Provider returns the name of the LLM provider (e.g., "openai", "anthropic").
	Provider() string

	// Model returns the model identifier being used (e.g., "gpt-4o-mini").
	Model() string
}
