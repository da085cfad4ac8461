package completion

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
)

func TestLocalLLMOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewLocalLLM(llm.NewClient(server.URL, "", time.Second), "llama3.2")
	assert.Equal(t, "llama3.2", p.Model())

	stream, err := p.Open(context.Background(), testTurns)
	require.NoError(t, err)
	defer stream.Close()

	text, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLocalLLMOpenFailureReturnsNilStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stream, err := NewLocalLLM(llm.NewClient(server.URL, "", time.Second), "llama3.2").Open(context.Background(), testTurns)
	assert.Error(t, err)
	assert.Nil(t, stream)
}

func TestOpenAICloudDiscoverFiltersNonChatModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o"},{"id":"text-embedding-3-small"},{"id":"whisper-1"},{"id":"gpt-4o-mini"},{"id":"tts-1"}]}`)
	}))
	defer server.Close()

	p := NewOpenAICloud(llm.NewClient(server.URL, "sk", time.Second), "sk")
	assert.True(t, p.Configured())

	models, err := p.DiscoverModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)

	assert.False(t, NewOpenAICloud(llm.NewMockClient(), "").Configured())
}

func TestGatewayWithMockClient(t *testing.T) {
	g := newGateway(NewLocalLLM(llm.NewMockClient(), "mock"), nil)

	var joined string
	for f := range g.Stream(context.Background(), testTurns, Options{}) {
		assert.False(t, f.Diagnostic)
		joined += f.Text
	}
	assert.Equal(t, `[MOCK] Received your message: "hi". This is a simulated response.`, joined)
}
