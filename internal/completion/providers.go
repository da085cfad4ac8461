package completion

import (
	"context"
	"strings"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// LocalLLM serves completions from an OpenAI-compatible model server such
// as Ollama.
type LocalLLM struct {
	client llm.ChatClient
	model  string
}

// NewLocalLLM creates a local provider for model.
func NewLocalLLM(client llm.ChatClient, model string) *LocalLLM {
	return &LocalLLM{client: client, model: model}
}

func (p *LocalLLM) Name() string  { return "ollama" }
func (p *LocalLLM) Model() string { return p.model }

// Open starts a streamed completion.
func (p *LocalLLM) Open(ctx context.Context, turns []domain.Turn) (Stream, error) {
	stream, err := p.client.OpenChatCompletionStream(ctx, &llm.ChatCompletionRequest{
		Model:    p.model,
		Messages: toChatMessages(turns),
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// OpenAICloud serves completions from a hosted OpenAI-compatible API.
type OpenAICloud struct {
	client llm.ChatClient
	apiKey string
}

// NewOpenAICloud creates a cloud provider. The client must already carry
// apiKey; it is kept here to answer Configured.
func NewOpenAICloud(client llm.ChatClient, apiKey string) *OpenAICloud {
	return &OpenAICloud{client: client, apiKey: apiKey}
}

func (p *OpenAICloud) Name() string     { return "openai" }
func (p *OpenAICloud) Configured() bool { return p.apiKey != "" }

// Open starts a streamed completion on model.
func (p *OpenAICloud) Open(ctx context.Context, model string, turns []domain.Turn) (Stream, error) {
	stream, err := p.client.OpenChatCompletionStream(ctx, &llm.ChatCompletionRequest{
		Model:    model,
		Messages: toChatMessages(turns),
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// nonChatModelMarkers identify model ids that cannot serve chat completions.
var nonChatModelMarkers = []string{"embed", "whisper", "tts", "dall-e", "moderation", "davinci", "babbage", "transcribe", "image"}

// DiscoverModels lists chat-capable models in the order the API returns them.
func (p *OpenAICloud) DiscoverModels(ctx context.Context) ([]string, error) {
	models, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range models {
		if isChatModel(m.ID) {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

func isChatModel(id string) bool {
	lower := strings.ToLower(id)
	for _, marker := range nonChatModelMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

func toChatMessages(turns []domain.Turn) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, len(turns))
	for i, t := range turns {
		msgs[i] = llm.ChatMessage{Role: string(t.Role), Content: t.Content}
	}
	return msgs
}
