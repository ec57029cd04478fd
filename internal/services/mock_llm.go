package services

import (
	"context"
	"sync"

	"github.com/maduarte95/arena-test/pkg/chat"
)

// MockLLM is a mock implementation of LLMService for testing.
type MockLLM struct {
	ChatFunc       func(ctx context.Context, messages []chat.Message) (*chat.Response, error)
	ChatStreamFunc func(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error)

	// Track calls for testing
	ChatCalls       [][]chat.Message
	ChatStreamCalls [][]chat.Message

	mu sync.Mutex // protects all fields above
}

var _ LLMService = (*MockLLM)(nil)

// NewMockLLM creates a new mock LLM service.
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// InitModel mocks model initialization.
func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Close mocks resource cleanup.
func (m *MockLLM) Close() error {
	return nil
}

// Chat mocks response generation.
func (m *MockLLM) Chat(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, messages)
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return &chat.Response{Message: "Mock response"}, nil
}

// ChatStream mocks streaming response generation. Without a configured
// ChatStreamFunc it streams the Chat response in a single chunk.
func (m *MockLLM) ChatStream(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.ChatStreamCalls = append(m.ChatStreamCalls, messages)
	fn := m.ChatStreamFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}

	resp, err := m.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	chunks := make(chan StreamChunk, 1)
	chunks <- StreamChunk{Text: resp.Message}
	close(chunks)
	return chunks, nil
}

// SetResponse sets up the mock to return a fixed message for both Chat
// and ChatStream.
func (m *MockLLM) SetResponse(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
		return &chat.Response{Message: message}, nil
	}
}

// SetError sets up the mock to fail both Chat and ChatStream.
func (m *MockLLM) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.Message) (*chat.Response, error) {
		return nil, err
	}
	m.ChatStreamFunc = func(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error) {
		return nil, err
	}
}

// StreamChunks sets up the mock to stream the given fragments in order.
func (m *MockLLM) StreamChunks(fragments ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatStreamFunc = func(ctx context.Context, messages []chat.Message) (<-chan StreamChunk, error) {
		chunks := make(chan StreamChunk, len(fragments))
		for _, fragment := range fragments {
			chunks <- StreamChunk{Text: fragment}
		}
		close(chunks)
		return chunks, nil
	}
}

// Calls returns copies of the recorded call arguments.
func (m *MockLLM) Calls() (chatCalls, streamCalls [][]chat.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chatCalls = make([][]chat.Message, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)
	streamCalls = make([][]chat.Message, len(m.ChatStreamCalls))
	copy(streamCalls, m.ChatStreamCalls)
	return chatCalls, streamCalls
}
