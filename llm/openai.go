// OpenAI Provider implementation using sashabaranov/go-openai.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Chat Completions API
//
// The Chat Completions API carries no per-chunk thought flag, so every
// chunk is emitted with the response phase.

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// GenerateStream streams a completion. All chunks are response-phase.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, system string, history []Message, chunks chan<- Chunk) error {
	request := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    convertToOpenAIMessages(system, history),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Stream:      true,
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		text := response.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		select {
		case chunks <- Chunk{Text: text, Phase: PhaseResponse}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// GenerateOnce sends a single non-streaming prompt.
func (p *OpenAIProvider) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	response, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return response.Choices[0].Message.Content, nil
}

// convertToOpenAIMessages converts conversation history to OpenAI format.
func convertToOpenAIMessages(system string, history []Message) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Text,
		})
	}
	return messages
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
