// Package gemini adapts the Google Gen AI SDK to the completion gateway.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// Provider streams completions from the Gemini API.
type Provider struct {
	apiKey string

	mu     sync.Mutex
	client *genai.Client
}

// NewProvider creates a provider. The SDK client is built on first use so a
// missing key never causes a network call.
func NewProvider(apiKey string) *Provider {
	return &Provider{apiKey: apiKey}
}

func (p *Provider) Name() string     { return "gemini" }
func (p *Provider) Configured() bool { return p.apiKey != "" }

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.client = client
	return client, nil
}

// Open starts a streamed generation on model. It waits for the first
// response so that a rejected model surfaces here rather than mid-stream.
func (p *Provider) Open(ctx context.Context, model string, turns []domain.Turn) (completion.Stream, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, config := BuildRequest(turns)
	next, stop := iter.Pull2(client.Models.GenerateContentStream(ctx, model, contents, config))

	resp, err, ok := next()
	if !ok {
		stop()
		return nil, fmt.Errorf("model %s returned an empty stream", model)
	}
	if err != nil {
		stop()
		return nil, err
	}
	s := &stream{next: next, stop: stop, hasPending: true}
	if resp != nil {
		s.pending = resp.Text()
	}
	return s, nil
}

// DiscoverModels lists models that advertise content generation.
func (p *Provider) DiscoverModels(ctx context.Context) ([]string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		if SupportsStreaming(m.SupportedActions) {
			out = append(out, ModelID(m.Name))
		}
	}
	return out, nil
}

// SupportsStreaming reports whether a model's supported actions include
// content generation.
func SupportsStreaming(actions []string) bool {
	for _, a := range actions {
		if a == "generateContent" || a == "streamGenerateContent" {
			return true
		}
	}
	return false
}

// ModelID strips the resource prefix the list endpoint returns.
func ModelID(name string) string {
	return strings.TrimPrefix(name, "models/")
}

// BuildRequest maps turns onto Gemini contents. System turns become the
// system instruction; assistant turns use the model role.
func BuildRequest(turns []domain.Turn) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleSystem:
			system = append(system, t.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}

// stream adapts the SDK's pull iterator to completion.Stream.
type stream struct {
	next       func() (*genai.GenerateContentResponse, error, bool)
	stop       func()
	pending    string
	hasPending bool
}

func (s *stream) Next() (string, error) {
	if s.hasPending {
		s.hasPending = false
		return s.pending, nil
	}
	resp, err, ok := s.next()
	if !ok {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty response chunk")
	}
	return resp.Text(), nil
}

func (s *stream) Close() error {
	s.stop()
	return nil
}
