package llm

import "context"

// ChunkReader yields streamed completion text until io.EOF.
type ChunkReader interface {
	Next() (string, error)
	Close() error
}

// ChatClient defines the chat completion operations the gateway needs.
type ChatClient interface {
	// OpenChatCompletionStream starts a streaming completion. It returns
	// once the upstream has accepted the request; text is then pulled
	// from the reader.
	OpenChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (ChunkReader, error)

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

var (
	_ ChatClient = (*Client)(nil)
	_ ChatClient = (*MockClient)(nil)
)
