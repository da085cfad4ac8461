package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdulkalam-AIML/titanbot/internal/adapter/llm"
	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

func dialChat(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(s.echo)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) domain.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg domain.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestChatWebSocketRequiresHello(t *testing.T) {
	s := newTestServer(t)
	conn := dialChat(t, s)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, Message: "hi"}))
	msg := readWS(t, conn)
	assert.Equal(t, domain.WSTypeError, msg.Type)
	assert.Equal(t, domain.WSErrorHelloRequired, msg.Code)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeHello, Token: "bogus"}))
	msg = readWS(t, conn)
	assert.Equal(t, domain.WSTypeError, msg.Type)
	assert.Equal(t, domain.WSErrorUnauthorized, msg.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readWS(t, conn)
	assert.Equal(t, domain.WSErrorInvalidMessage, msg.Code)
}

func TestChatWebSocketStreamsReply(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "ws@example.com")
	conn := dialChat(t, s)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeHello, Token: token, RequestID: "h1"}))
	ack := readWS(t, conn)
	require.Equal(t, domain.WSTypeHelloAck, ack.Type)
	assert.Equal(t, "h1", ack.RequestID)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, RequestID: "r1", Message: "Hello"}))

	session := readWS(t, conn)
	require.Equal(t, domain.WSTypeSession, session.Type)
	require.NotNil(t, session.SessionID)
	assert.Equal(t, "Hello", session.Title)

	var text strings.Builder
	for {
		msg := readWS(t, conn)
		assert.Equal(t, "r1", msg.RequestID)
		if msg.Type == domain.WSTypeDone {
			break
		}
		require.Equal(t, domain.WSTypeDelta, msg.Type)
		text.WriteString(msg.Text)
	}
	assert.Equal(t, llm.MockResponse([]llm.ChatMessage{{Role: "user", Content: "Hello"}}), text.String())

	// A follow-up on a foreign session is refused in-band.
	other := int64(9999)
	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, RequestID: "r2", Message: "again", SessionID: &other}))
	msg := readWS(t, conn)
	assert.Equal(t, domain.WSTypeError, msg.Type)
	assert.Equal(t, domain.WSErrorNotFound, msg.Code)
}

func hello(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeHello, Token: token}))
	require.Equal(t, domain.WSTypeHelloAck, readWS(t, conn).Type)
}

// readExchange reads frames up to done or the first error frame.
func readExchange(t *testing.T, conn *websocket.Conn) domain.WSMessage {
	t.Helper()
	for {
		msg := readWS(t, conn)
		if msg.Type == domain.WSTypeDone || msg.Type == domain.WSTypeError {
			return msg
		}
	}
}

func TestChatWebSocketRejectsExpiredToken(t *testing.T) {
	s := newTestServer(t, withTokenTTL(2*time.Second))
	token := s.register(t, "expiring@example.com")
	conn := dialChat(t, s)
	hello(t, conn, token)

	time.Sleep(3 * time.Second)

	rec := s.do(t, http.MethodGet, "/api/chat/sessions", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, RequestID: "late", Message: "still there?"}))
	msg := readWS(t, conn)
	assert.Equal(t, domain.WSTypeError, msg.Type)
	assert.Equal(t, domain.WSErrorUnauthorized, msg.Code)
	assert.Equal(t, "late", msg.RequestID)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	user, err := s.store.GetUserByEmail(context.Background(), "expiring@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	sessions, err := s.store.ListSessions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestChatWebSocketSharesSendBudget(t *testing.T) {
	s := newTestServer(t, withSendLimit(&countingLimiter{}, 1))
	token := s.register(t, "budget@example.com")
	conn := dialChat(t, s)
	hello(t, conn, token)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, RequestID: "r1", Message: "one"}))
	assert.Equal(t, domain.WSTypeDone, readExchange(t, conn).Type)

	require.NoError(t, conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeSend, RequestID: "r2", Message: "two"}))
	msg := readWS(t, conn)
	assert.Equal(t, domain.WSTypeError, msg.Type)
	assert.Equal(t, domain.WSErrorRateLimited, msg.Code)
	assert.Equal(t, "r2", msg.RequestID)

	rec := s.do(t, http.MethodPost, "/api/chat/send", token, domain.SendMessageRequest{Message: "three"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCheckOrigin(t *testing.T) {
	h := &Handler{opts: Options{AllowedOrigins: []string{"https://app.example.com"}}}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, h.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, h.checkOrigin(req))

	h.opts.AllowedOrigins = []string{"*"}
	assert.True(t, h.checkOrigin(req))
}
