package services

import (
	"context"

	"github.com/maduarte95/arena-test/pkg/chat"
)

// StreamChunk is one ordered fragment of a streaming LLM response. The
// channel is closed when the response is complete; a chunk with a
// non-nil Err terminates the stream.
type StreamChunk struct {
	Text string
	Err  error
}

// LLMService defines the interface for interacting with an LLM API.
type LLMService interface {
	// InitModel initializes or verifies the model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Chat generates a complete response in one call.
	Chat(ctx context.Context, messages []chat.Message) (*chat.Response, error)

	// ChatStream generates a response as an ordered sequence of text
	// fragments. The caller must drain the channel; cancelling ctx
	// terminates the stream with an error chunk.
	ChatStream(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error)

	// Close releases any underlying client resources.
	Close() error
}
