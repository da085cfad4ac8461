package v1

import (
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/transport/http/middleware"
)

// HeaderSessionID carries the session a streamed reply belongs to.
const HeaderSessionID = "X-Session-ID"

// CreateSession creates an empty chat session.
// POST /api/chat/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}
	session, err := h.service.CreateSession(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListSessions lists the caller's sessions, most recent first.
// GET /api/chat/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), middleware.CurrentUser(c))
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// ListMessages lists a session's turns in order.
// GET /api/chat/sessions/:session_id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return detail(c, http.StatusBadRequest, "invalid session id")
	}
	messages, err := h.service.ListMessages(c.Request().Context(), middleware.CurrentUser(c), sessionID)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// DeleteSession deletes a session and its turns.
// DELETE /api/chat/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return detail(c, http.StatusBadRequest, "invalid session id")
	}
	if err := h.service.DeleteSession(c.Request().Context(), middleware.CurrentUser(c), sessionID); err != nil {
		return h.httpError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SendMessage stores the user's message and streams the reply.
// POST /api/chat/send
//
// The body is raw reply text unless ?format=sse asks for framed events.
func (h *Handler) SendMessage(c echo.Context) error {
	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	session, fragments, err := h.service.SendMessage(ctx, middleware.CurrentUser(c), req)
	if err != nil {
		return h.httpError(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.Header().Set(HeaderSessionID, strconv.FormatInt(session.ID, 10))
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	// The status is already sent; failures from here on are only logged.
	if c.QueryParam("format") == "sse" {
		err = h.streamEvents(resp, session, fragments)
	} else {
		err = h.streamRaw(resp, fragments)
	}
	if err != nil {
		h.logger.Warn().Err(err).Int64("session_id", session.ID).Msg("stream ended early")
	}
	return nil
}

func (h *Handler) streamRaw(resp *echo.Response, fragments iter.Seq[domain.Fragment]) error {
	for f := range fragments {
		if _, err := resp.Write([]byte(f.Text)); err != nil {
			return err
		}
		resp.Flush()
	}
	return nil
}

func (h *Handler) streamEvents(resp *echo.Response, session *domain.ChatSession, fragments iter.Seq[domain.Fragment]) error {
	start := time.Now()
	if err := writeEvent(resp, domain.SSEEventSession, domain.SessionEventData{SessionID: session.ID, Title: session.Title}); err != nil {
		return err
	}

	count := 0
	for f := range fragments {
		var err error
		if f.Diagnostic {
			err = writeEvent(resp, domain.SSEEventError, domain.ErrorEventData{Code: domain.WSErrorProvider, Message: f.Text})
		} else {
			count++
			err = writeEvent(resp, domain.SSEEventDelta, domain.DeltaEventData{Text: f.Text})
		}
		if err != nil {
			return err
		}
	}

	return writeEvent(resp, domain.SSEEventDone, domain.DoneEventData{
		SessionID:  session.ID,
		Fragments:  count,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func writeEvent(resp *echo.Response, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
