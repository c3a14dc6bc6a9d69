// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Thinking-delta detection during streaming

package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Extended thinking needs a token budget; this is the smallest useful one.
const anthropicThinkingBudget = 1024

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:    client,
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// GenerateStream streams a completion, tagging thinking deltas as thinking chunks.
func (p *AnthropicProvider) GenerateStream(ctx context.Context, system string, history []Message, chunks chan<- Chunk) error {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  convertToAnthropicMessages(history),
		Thinking: anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: anthropicThinkingBudget,
			},
		},
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	stream := p.client.Messages.NewStreaming(ctx, params)

	for stream.Next() {
		event := stream.Current()

		deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}

		var chunk Chunk
		switch deltaVariant := deltaEvent.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			chunk = Chunk{Text: deltaVariant.Text, Phase: PhaseResponse}
		case anthropic.ThinkingDelta:
			chunk = Chunk{Text: deltaVariant.Thinking, Phase: PhaseThinking}
		default:
			continue
		}

		if chunk.Text == "" {
			continue
		}
		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if stream.Err() != nil {
		return fmt.Errorf("stream error: %w", stream.Err())
	}

	return nil
}

// GenerateOnce sends a single non-streaming prompt.
func (p *AnthropicProvider) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	content := ""
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += variant.Text
		}
	}
	if content == "" {
		return "", fmt.Errorf("empty response from Anthropic")
	}
	return content, nil
}

// convertToAnthropicMessages converts conversation history to Anthropic format.
func convertToAnthropicMessages(history []Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Text),
			))
		case RoleModel:
			messages = append(messages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Text),
			))
		}
	}
	return messages
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
