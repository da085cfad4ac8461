package v1

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/transport/http/middleware"
)

// ChatWebSocket serves the streaming chat protocol over a WebSocket.
// GET /api/chat/ws
//
// The client authenticates with a hello carrying its token (or an
// Authorization header on the upgrade), then sends one message at a time.
// Each send is answered with session, delta*, an optional error, and done.
// A send after the token has expired gets an unauthorized error and the
// connection is closed.
func (h *Handler) ChatWebSocket(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(h.opts.WSMaxMessageSize)

	ctx := c.Request().Context()
	ws := &wsConn{conn: conn, writeTimeout: h.opts.WSWriteTimeout}

	var (
		user      *domain.User
		expiresAt time.Time
	)
	if token, ok := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); ok {
		user, expiresAt, _ = h.authenticate(ctx, token)
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.WSIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket closed")
			}
			return nil
		}

		var msg domain.WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if ws.sendError("", domain.WSErrorInvalidMessage, "invalid JSON message") != nil {
				return nil
			}
			continue
		}

		switch msg.Type {
		case domain.WSTypeHello:
			u, exp, err := h.authenticate(ctx, msg.Token)
			if err != nil {
				err = ws.sendError(msg.RequestID, domain.WSErrorUnauthorized, "Could not validate credentials")
			} else {
				user, expiresAt = u, exp
				err = ws.send(domain.WSMessage{Type: domain.WSTypeHelloAck, RequestID: msg.RequestID})
			}
			if err != nil {
				return nil
			}
		case domain.WSTypeSend:
			if user == nil {
				if ws.sendError(msg.RequestID, domain.WSErrorHelloRequired, "must send hello first") != nil {
					return nil
				}
				continue
			}
			if !time.Now().Before(expiresAt) {
				_ = ws.sendError(msg.RequestID, domain.WSErrorUnauthorized, "Could not validate credentials")
				return nil
			}
			if err := h.wsSend(ctx, ws, user, msg); err != nil {
				h.logger.Debug().Err(err).Msg("websocket write failed")
				return nil
			}
		default:
			if ws.sendError(msg.RequestID, domain.WSErrorInvalidMessage, "unknown message type: "+msg.Type) != nil {
				return nil
			}
		}
	}
}

func (h *Handler) authenticate(ctx context.Context, token string) (*domain.User, time.Time, error) {
	if token == "" {
		return nil, time.Time{}, domain.ErrInvalidCredential
	}
	user, expiresAt, err := h.service.AuthenticateUntil(ctx, token)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !user.IsActive {
		return nil, time.Time{}, domain.ErrInvalidCredential
	}
	return user, expiresAt, nil
}

// wsSend runs one exchange. It returns an error only when the connection
// can no longer be written to.
func (h *Handler) wsSend(ctx context.Context, ws *wsConn, user *domain.User, msg domain.WSMessage) error {
	if err := h.service.Authorize(ctx, user, domain.ActionChatSend); err != nil {
		return ws.sendError(msg.RequestID, domain.WSErrorUnauthorized, "Not authorized")
	}
	if !h.limiter.AllowUser(ctx, limitSend, user.ID, h.opts.SendPerMinute, time.Minute) {
		return ws.sendError(msg.RequestID, domain.WSErrorRateLimited, "rate limit exceeded")
	}

	session, fragments, err := h.service.SendMessage(ctx, user, domain.SendMessageRequest{
		Message:   msg.Message,
		SessionID: msg.SessionID,
		Model:     msg.Model,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			return ws.sendError(msg.RequestID, domain.WSErrorInvalidMessage, verr.Error())
		case errors.Is(err, domain.ErrNotFound):
			return ws.sendError(msg.RequestID, domain.WSErrorNotFound, "Session not found")
		default:
			h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("websocket send failed")
			return ws.sendError(msg.RequestID, domain.WSErrorInternal, "Internal server error")
		}
	}

	sessionID := session.ID
	if err := ws.send(domain.WSMessage{Type: domain.WSTypeSession, RequestID: msg.RequestID, SessionID: &sessionID, Title: session.Title}); err != nil {
		return err
	}
	for f := range fragments {
		out := domain.WSMessage{Type: domain.WSTypeDelta, RequestID: msg.RequestID, SessionID: &sessionID, Text: f.Text}
		if f.Diagnostic {
			out = domain.WSMessage{Type: domain.WSTypeError, RequestID: msg.RequestID, SessionID: &sessionID, Code: domain.WSErrorProvider, Message: f.Text}
		}
		if err := ws.send(out); err != nil {
			return err
		}
	}
	return ws.send(domain.WSMessage{Type: domain.WSTypeDone, RequestID: msg.RequestID, SessionID: &sessionID})
}

type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsConn) send(msg domain.WSMessage) error {
	msg.Ts = time.Now().UnixMilli()
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	return w.conn.WriteJSON(msg)
}

func (w *wsConn) sendError(requestID, code, message string) error {
	return w.send(domain.WSMessage{Type: domain.WSTypeError, RequestID: requestID, Code: code, Message: message})
}
