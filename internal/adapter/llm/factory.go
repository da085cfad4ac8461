package llm

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ModeMock selects the simulated client.
const ModeMock = "MOCK"

// NewChatClient returns a MockClient when mode is MOCK and a real Client
// otherwise.
func NewChatClient(mode, baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) ChatClient {
	if strings.EqualFold(mode, ModeMock) {
		logger.Info().Msg("simulation mode enabled, using mock LLM client")
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
