package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// APIClient talks to the TitanBot REST API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for baseURL, e.g. http://localhost:8000/api.
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Register creates an account and returns its token.
func (c *APIClient) Register(ctx context.Context, req domain.RegisterRequest) (*domain.TokenResponse, error) {
	var tok domain.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Login exchanges credentials for a token.
func (c *APIClient) Login(ctx context.Context, req domain.LoginRequest) (*domain.TokenResponse, error) {
	var tok domain.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Me returns the authenticated user.
func (c *APIClient) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSessions returns the caller's sessions.
func (c *APIClient) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	var sessions []domain.ChatSession
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListMessages returns a session's turns.
func (c *APIClient) ListMessages(ctx context.Context, sessionID int64) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chat/sessions/%d/messages", sessionID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DeleteSession removes a session.
func (c *APIClient) DeleteSession(ctx context.Context, sessionID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/chat/sessions/%d", sessionID), nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var e domain.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			return fmt.Errorf("%s (status %d)", e.Detail, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ChatClient is a WebSocket chat connection.
type ChatClient struct {
	conn      *websocket.Conn
	sessionID *int64
}

// DialChat connects to the chat WebSocket below baseURL and completes the
// hello handshake.
func DialChat(ctx context.Context, baseURL, token string) (*ChatClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/chat/ws")
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	c := &ChatClient{conn: conn}
	if err := c.hello(token); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the connection.
func (c *ChatClient) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// UseSession continues an existing session on the next Send.
func (c *ChatClient) UseSession(id int64) {
	c.sessionID = &id
}

// SessionID returns the session bound by the last exchange, or 0.
func (c *ChatClient) SessionID() int64 {
	if c.sessionID == nil {
		return 0
	}
	return *c.sessionID
}

func (c *ChatClient) hello(token string) error {
	if err := c.conn.WriteJSON(domain.WSMessage{Type: domain.WSTypeHello, Ts: time.Now().UnixMilli(), Token: token}); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}
	var ack domain.WSMessage
	if err := c.conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}
	if ack.Type == domain.WSTypeError {
		return fmt.Errorf("hello failed: %s - %s", ack.Code, ack.Message)
	}
	if ack.Type != domain.WSTypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", ack.Type)
	}
	return nil
}

// Send sends one message and writes the streamed reply to out. Provider
// failures are written to out as they arrive; protocol errors are returned.
func (c *ChatClient) Send(message, model string, out io.Writer) error {
	requestID := fmt.Sprintf("req_%d", time.Now().UnixNano())
	err := c.conn.WriteJSON(domain.WSMessage{
		Type:      domain.WSTypeSend,
		Ts:        time.Now().UnixMilli(),
		RequestID: requestID,
		SessionID: c.sessionID,
		Message:   message,
		Model:     model,
	})
	if err != nil {
		return fmt.Errorf("write send: %w", err)
	}

	for {
		var msg domain.WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read reply: %w", err)
		}
		switch msg.Type {
		case domain.WSTypeSession:
			c.sessionID = msg.SessionID
		case domain.WSTypeDelta:
			if _, err := io.WriteString(out, msg.Text); err != nil {
				return err
			}
		case domain.WSTypeError:
			if msg.Code != domain.WSErrorProvider {
				return fmt.Errorf("%s: %s", msg.Code, msg.Message)
			}
			if _, err := io.WriteString(out, msg.Message); err != nil {
				return err
			}
		case domain.WSTypeDone:
			_, err := io.WriteString(out, "\n")
			return err
		}
	}
}
