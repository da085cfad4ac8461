package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
	"github.com/Abdulkalam-AIML/titanbot/internal/auth"
	"github.com/Abdulkalam-AIML/titanbot/internal/completion"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/policy"
	"github.com/Abdulkalam-AIML/titanbot/internal/repository"
	"github.com/Abdulkalam-AIML/titanbot/tests/helpers"
)

func roles(t *testing.T, env *testEnv, sessionID int64) []domain.Turn {
	t.Helper()
	msgs, err := env.store.ListMessages(context.Background(), sessionID)
	require.NoError(t, err)
	turns := make([]domain.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func TestSendMessageCreatesSessionWithTitle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultOptions())
	user := env.register(t, "c@example.com")

	message := "Explain how tides work on the ocean please"
	session, seq, err := env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: message, Model: "gemini-pro"})
	require.NoError(t, err)
	assert.Equal(t, message[:30], session.Title)

	got := drain(seq)
	assert.Equal(t, []domain.Fragment{{Text: "Hello"}, {Text: " there"}}, got)
	assert.Equal(t, "gemini-pro", env.completer.opts.PreferredModel)

	want := []domain.Turn{
		{Role: domain.RoleUser, Content: message},
		{Role: domain.RoleAssistant, Content: "Hello there"},
	}
	if diff := cmp.Diff(want, roles(t, env, session.ID)); diff != "" {
		t.Errorf("stored turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSendMessageTitleCountsCharacters(t *testing.T) {
	env := newTestEnv(t, DefaultOptions())
	user := env.register(t, "r@example.com")

	message := strings.Repeat("é", 40)
	session, seq, err := env.svc.SendMessage(context.Background(), user, domain.SendMessageRequest{Message: message})
	require.NoError(t, err)
	drain(seq)
	assert.Equal(t, strings.Repeat("é", 30), session.Title)
}

func TestSendMessageStoresUserTurnBeforeStreaming(t *testing.T) {
	env := newTestEnv(t, DefaultOptions())
	user := env.register(t, "o@example.com")

	var storedBefore int
	var sessionID int64
	env.completer.onStream = func() {
		msgs, err := env.store.ListMessages(context.Background(), sessionID)
		require.NoError(t, err)
		storedBefore = len(msgs)
	}

	session, seq, err := env.svc.SendMessage(context.Background(), user, domain.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)
	sessionID = session.ID
	drain(seq)

	assert.Equal(t, 1, storedBefore)
	assert.Len(t, roles(t, env, session.ID), 2)
}

func TestSendMessageReusesSessionAndBuildsContext(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.Persona = "Be brief."
	env := newTestEnv(t, opts)
	user := env.register(t, "h@example.com")

	session, seq, err := env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "first"})
	require.NoError(t, err)
	drain(seq)

	again, seq, err := env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "second", SessionID: &session.ID})
	require.NoError(t, err)
	assert.Equal(t, session.ID, again.ID)
	assert.Equal(t, "first", again.Title)
	drain(seq)

	want := []domain.Turn{
		{Role: domain.RoleSystem, Content: "Be brief."},
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "Hello there"},
		{Role: domain.RoleUser, Content: "second"},
	}
	if diff := cmp.Diff(want, env.completer.turns); diff != "" {
		t.Errorf("provider turns mismatch (-want +got):\n%s", diff)
	}

	sessions, err := env.svc.ListSessions(ctx, user)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSendMessageBoundsHistory(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.MaxHistoryTurns = 3
	env := newTestEnv(t, opts)
	user := env.register(t, "b@example.com")

	session, seq, err := env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "one"})
	require.NoError(t, err)
	drain(seq)
	for _, m := range []string{"two", "three"} {
		_, seq, err = env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: m, SessionID: &session.ID})
		require.NoError(t, err)
		drain(seq)
	}

	want := []domain.Turn{
		{Role: domain.RoleSystem, Content: "You are TitanBot."},
		{Role: domain.RoleUser, Content: "two"},
		{Role: domain.RoleAssistant, Content: "Hello there"},
		{Role: domain.RoleUser, Content: "three"},
	}
	if diff := cmp.Diff(want, env.completer.turns); diff != "" {
		t.Errorf("provider turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSendMessageForeignSessionRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, DefaultOptions())
	owner := env.register(t, "owner@example.com")
	intruder := env.register(t, "intruder@example.com")

	session, err := env.svc.CreateSession(ctx, owner, domain.CreateSessionRequest{Title: "mine"})
	require.NoError(t, err)

	_, _, err = env.svc.SendMessage(ctx, intruder, domain.SendMessageRequest{Message: "hi", SessionID: &session.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, env.completer.calls)
	assert.Empty(t, roles(t, env, session.ID))
}

// brokenTurnStore refuses to store turns.
type brokenTurnStore struct {
	repository.Store
}

func (s *brokenTurnStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	return errors.New("disk full")
}

func TestSendMessageDiscardsNewSessionWhenUserTurnFails(t *testing.T) {
	ctx := context.Background()
	env := newTestEnvWithStore(t, &brokenTurnStore{Store: helpers.NewTestSQLiteStore(t)}, DefaultOptions())
	user := env.register(t, "broken@example.com")

	existing, err := env.svc.CreateSession(ctx, user, domain.CreateSessionRequest{Title: "kept"})
	require.NoError(t, err)

	_, _, err = env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "first words"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	_, _, err = env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "again", SessionID: &existing.ID})
	require.Error(t, err)

	sessions, err := env.svc.ListSessions(ctx, user)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, existing.ID, sessions[0].ID)
	assert.Zero(t, env.completer.calls)
}

func TestSendMessageRejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t, DefaultOptions())
	user := env.register(t, "e@example.com")

	var verr *domain.ValidationError
	_, _, err := env.svc.SendMessage(context.Background(), user, domain.SendMessageRequest{Message: "   "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message", verr.Field)

	sessions, err := env.svc.ListSessions(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestSendMessageDiagnosticIsNotStored(t *testing.T) {
	env := newTestEnv(t, DefaultOptions())
	env.completer.fragments = []domain.Fragment{{Text: "Error: nothing answered", Diagnostic: true}}
	user := env.register(t, "x@example.com")

	session, seq, err := env.svc.SendMessage(context.Background(), user, domain.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)
	got := drain(seq)
	require.Len(t, got, 1)
	assert.True(t, got[0].Diagnostic)

	want := []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}
	if diff := cmp.Diff(want, roles(t, env, session.ID)); diff != "" {
		t.Errorf("stored turns mismatch (-want +got):\n%s", diff)
	}
}

func TestSendMessagePartialReplyStoredWhenConsumerStops(t *testing.T) {
	env := newTestEnv(t, DefaultOptions())
	env.completer.fragments = []domain.Fragment{{Text: "partial"}, {Text: " rest"}}
	user := env.register(t, "p@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session, seq, err := env.svc.SendMessage(ctx, user, domain.SendMessageRequest{Message: "hi"})
	require.NoError(t, err)

	for range seq {
		cancel()
		break
	}

	turns := roles(t, env, session.ID)
	require.Len(t, turns, 2)
	assert.Equal(t, domain.Turn{Role: domain.RoleAssistant, Content: "partial"}, turns[1])
}

func TestTitleFrom(t *testing.T) {
	assert.Equal(t, "short", titleFrom("short", 30))
	assert.Equal(t, "abc", titleFrom("abcdef", 3))
	assert.Equal(t, "日本", titleFrom("日本語", 2))
}

func TestRegisterThenSendEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := helpers.NewTestSQLiteStore(t)
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	gateway := completion.NewGateway(
		completion.NewLocalLLM(llm.NewMockClient(), "llama3.2"),
		nil,
		completion.Config{},
		zerolog.Nop(),
	)
	tokens := auth.NewTokenIssuer("e2e-secret", time.Hour)
	svc := New(store, tokens, &stubGoogle{}, &stubApple{}, gateway, engine, Options{Persona: "You are TitanBot."}, zerolog.Nop())

	_, err = svc.Register(ctx, domain.RegisterRequest{Email: "e2e@example.com", Password: "secret"})
	require.NoError(t, err)
	user, err := svc.Login(ctx, domain.LoginRequest{Email: "e2e@example.com", Password: "secret"})
	require.NoError(t, err)
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	caller, err := svc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Authorize(ctx, caller, domain.ActionChatSend))

	session, seq, err := svc.SendMessage(ctx, caller, domain.SendMessageRequest{Message: "Hello"})
	require.NoError(t, err)

	var reply strings.Builder
	for f := range seq {
		require.False(t, f.Diagnostic, f.Text)
		reply.WriteString(f.Text)
	}
	wantReply := llm.MockResponse([]llm.ChatMessage{{Role: "user", Content: "Hello"}})
	assert.Equal(t, wantReply, reply.String())

	msgs, err := svc.ListMessages(ctx, caller, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleUser, msgs[0].Role)
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	assert.Equal(t, wantReply, msgs[1].Content)
}
