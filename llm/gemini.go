// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - Thought-part detection via the per-part Thought flag
// - Streaming via official SDK iterator

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			client:      nil,
			model:       model,
			maxTokens:   int32(maxTokens),
			temperature: temperature,
			initErr:     fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// GenerateStream streams a completion, tagging thought parts as thinking chunks.
func (p *GeminiProvider) GenerateStream(ctx context.Context, system string, history []Message, chunks chan<- Chunk) error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.client == nil {
		return fmt.Errorf("gemini client not initialized")
	}

	contents := convertToGeminiContents(history)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
		},
	}

	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		for _, candidate := range response.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text == "" {
					continue
				}
				chunk := Chunk{Text: part.Text}
				if part.Thought {
					chunk.Phase = PhaseThinking
				}
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	return nil
}

// GenerateOnce sends a single non-streaming prompt (thinking disabled).
func (p *GeminiProvider) GenerateOnce(ctx context.Context, prompt string) (string, error) {
	if p.initErr != nil {
		return "", p.initErr
	}
	if p.client == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	text := response.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return text, nil
}

// convertToGeminiContents converts conversation history to Gemini format.
func convertToGeminiContents(history []Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range history {
		switch msg.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleUser))
		case RoleModel:
			contents = append(contents, genai.NewContentFromText(msg.Text, genai.RoleModel))
		}
	}
	return contents
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
