package llm

import (
	"context"
	"fmt"
	"io"
	"time"
)

// MockClient is a deterministic stand-in for a model server. It echoes the
// last user message back in fixed-size chunks.
type MockClient struct {
	// ChunkSize is the number of characters per streamed chunk.
	ChunkSize int
	// Delay is slept between chunks to simulate generation.
	Delay time.Duration
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{ChunkSize: 10}
}

// OpenChatCompletionStream simulates a streaming response.
func (m *MockClient) OpenChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (ChunkReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 10
	}
	return &mockStream{
		ctx:    ctx,
		chunks: splitIntoChunks(MockResponse(req.Messages), size),
		delay:  m.Delay,
	}, nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{ID: "mock-titan", Object: "model", OwnedBy: "mock"},
	}, nil
}

// MockResponse is the reply the mock client produces for messages.
func MockResponse(messages []ChatMessage) string {
	var lastUserMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUserMessage = messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return "[MOCK] This is a simulated response."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a simulated response.", truncate(lastUserMessage, 100))
}

type mockStream struct {
	ctx    context.Context
	chunks []string
	delay  time.Duration
	pos    int
}

func (s *mockStream) Next() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	if s.delay > 0 && s.pos > 0 {
		select {
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		case <-time.After(s.delay):
		}
	} else if err := s.ctx.Err(); err != nil {
		return "", err
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *mockStream) Close() error {
	s.pos = len(s.chunks)
	return nil
}

// splitIntoChunks splits a string into chunks of at most chunkSize runes.
func splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
