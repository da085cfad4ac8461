package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
	"github.com/Abdulkalam-AIML/titanbot/internal/auth"
	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/policy"
	"github.com/Abdulkalam-AIML/titanbot/internal/service"
	server "github.com/Abdulkalam-AIML/titanbot/internal/transport/http"
	"github.com/Abdulkalam-AIML/titanbot/tests/helpers"
)

func startServer(t *testing.T) string {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	logger := zerolog.Nop()
	svc := service.New(
		helpers.NewTestSQLiteStore(t),
		auth.NewTokenIssuer("cli-test-secret", time.Hour),
		auth.NewGoogleVerifier("", false, time.Second),
		auth.NewAppleVerifier("", false),
		completion.NewGateway(completion.NewLocalLLM(llm.NewMockClient(), "llama3.2"), nil, completion.Config{}, logger),
		engine,
		service.Options{Persona: "You are TitanBot."},
		logger,
	)
	srv := httptest.NewServer(server.NewServer(svc, nil, server.Config{APIPrefix: "/api"}, logger).Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func TestAPIClientFlow(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)

	anon := NewAPIClient(base, "")
	tok, err := anon.Register(ctx, domain.RegisterRequest{Email: "cli@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	_, err = anon.Register(ctx, domain.RegisterRequest{Email: "cli@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email already registered")

	_, err = anon.Login(ctx, domain.LoginRequest{Email: "cli@example.com", Password: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect email or password")

	tok, err = anon.Login(ctx, domain.LoginRequest{Email: "cli@example.com", Password: "pw"})
	require.NoError(t, err)

	client := NewAPIClient(base, tok.AccessToken)
	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cli@example.com", me.Email)

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = NewAPIClient(base, "").ListSessions(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestChatClientStreamsAndKeepsSession(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)

	tok, err := NewAPIClient(base, "").Register(ctx, domain.RegisterRequest{Email: "ws@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = DialChat(ctx, base, "not-a-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.WSErrorUnauthorized)

	chat, err := DialChat(ctx, base, tok.AccessToken)
	require.NoError(t, err)
	defer chat.Close()

	var out bytes.Buffer
	require.NoError(t, chat.Send("Hello", "", &out))
	want := llm.MockResponse([]llm.ChatMessage{{Role: "user", Content: "Hello"}})
	assert.Equal(t, want+"\n", out.String())
	first := chat.SessionID()
	require.NotZero(t, first)

	out.Reset()
	require.NoError(t, chat.Send("Again", "", &out))
	assert.Equal(t, first, chat.SessionID())

	messages, err := NewAPIClient(base, tok.AccessToken).ListMessages(ctx, first)
	require.NoError(t, err)
	assert.Len(t, messages, 4)

	chat.UseSession(first + 100)
	err = chat.Send("lost", "", &out)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), domain.WSErrorNotFound), err.Error())
}

func TestRootCommandRegisterAndLogin(t *testing.T) {
	base := startServer(t)
	serverURL = base

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"register", "cmd@example.com", "-p", "pw", "--server", base})
	require.NoError(t, rootCmd.Execute())
	assert.NotEmpty(t, strings.TrimSpace(out.String()))

	out.Reset()
	rootCmd.SetArgs([]string{"login", "cmd@example.com", "-p", "pw", "--server", base})
	require.NoError(t, rootCmd.Execute())
	registered := strings.TrimSpace(out.String())
	require.NotEmpty(t, registered)

	out.Reset()
	rootCmd.SetArgs([]string{"sessions", "--server", base, "--token", registered})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "TITLE")
}
