// Package llm provides generative-model provider abstractions.
//
// Provider is the abstract interface for generative-model backends.
// Each implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - How (and whether) the backend tags chunks as thoughts
//
// Providers that expose no thought flag emit every chunk with the zero
// Phase (response); callers must not assume thinking chunks ever arrive.

package llm

import (
	"context"
)

// Provider defines the abstract interface for generative-model providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// GenerateStream streams a completion for the given system prompt and
	// conversation history, sending phase-tagged chunks to the channel.
	// The channel is not closed by the provider.
	GenerateStream(ctx context.Context, system string, history []Message, chunks chan<- Chunk) error

	// GenerateOnce sends a single non-streaming prompt and returns the text.
	// Used for short secondary calls such as thinking summarization.
	GenerateOnce(ctx context.Context, prompt string) (string, error)
}
