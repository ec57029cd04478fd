package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/maduarte95/arena-test/pkg/chat"
)

// GeminiService implements LLMService using the Google Generative AI
// SDK.
type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

var _ LLMService = (*GeminiService)(nil)

// NewGeminiService creates a Gemini-backed LLM service.
func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	maxTokens := int32(DefaultAnthropicMaxTokens)
	model.MaxOutputTokens = &maxTokens

	return &GeminiService{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// InitModel is a no-op for Gemini; models are hosted and ready.
func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Close releases the underlying client.
func (g *GeminiService) Close() error {
	return g.client.Close()
}

// flatten folds the message list into a single prompt. The SDK's chat
// session types don't fit the arena's one-shot prompts, so system and
// conversation content are concatenated in order.
func flatten(messages []chat.Message) genai.Text {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(msg.Content)
	}
	return genai.Text(sb.String())
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// Chat generates a complete chat response.
func (g *GeminiService) Chat(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
	resp, err := g.model.GenerateContent(ctx, flatten(messages))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	return &chat.Response{Message: text}, nil
}

// ChatStream generates a streaming chat response.
func (g *GeminiService) ChatStream(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error) {
	iter := g.model.GenerateContentStream(ctx, flatten(messages))

	chunks := make(chan StreamChunk)
	go func() {
		defer close(chunks)
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				chunks <- StreamChunk{Err: fmt.Errorf("gemini stream failed: %w", err)}
				return
			}

			text, err := extractText(resp)
			if err != nil {
				continue
			}
			select {
			case chunks <- StreamChunk{Text: text}:
			case <-ctx.Done():
				chunks <- StreamChunk{Err: ctx.Err()}
				return
			}
		}
	}()

	return chunks, nil
}
