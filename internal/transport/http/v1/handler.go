// Package v1 provides the HTTP handlers for the chat API.
package v1

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
	"github.com/Abdulkalam-AIML/titanbot/internal/service"
	"github.com/Abdulkalam-AIML/titanbot/internal/transport/http/middleware"
)

// Rate limit budget names.
const (
	limitAuth = "auth"
	limitSend = "send"
)

// Options configure the handler.
type Options struct {
	// AuthPerMinute and SendPerMinute are per-client request budgets.
	// Zero disables the limit.
	AuthPerMinute int
	SendPerMinute int
	// AllowedOrigins is checked on WebSocket upgrades. "*" allows any.
	AllowedOrigins []string
	// WSIdleTimeout closes a WebSocket that sends nothing for this long.
	WSIdleTimeout time.Duration
	// WSWriteTimeout bounds each WebSocket frame write.
	WSWriteTimeout time.Duration
	// WSMaxMessageSize caps inbound WebSocket frames.
	WSMaxMessageSize int64
}

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	limiter  *middleware.RateLimiter
	opts     Options
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new handler. limiter may be nil.
func NewHandler(svc *service.Service, limiter *middleware.RateLimiter, opts Options, logger zerolog.Logger) *Handler {
	if opts.WSIdleTimeout <= 0 {
		opts.WSIdleTimeout = 5 * time.Minute
	}
	if opts.WSWriteTimeout <= 0 {
		opts.WSWriteTimeout = 10 * time.Second
	}
	if opts.WSMaxMessageSize <= 0 {
		opts.WSMaxMessageSize = 64 << 10
	}
	h := &Handler{
		service: svc,
		limiter: limiter,
		opts:    opts,
		logger:  logger.With().Str("component", "http").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// RegisterRoutes registers the API routes on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	authed := middleware.RequireUser(h.service)
	can := func(action string) echo.MiddlewareFunc {
		return middleware.RequireAction(h.service, action)
	}
	authLimit := h.limiter.Limit(limitAuth, h.opts.AuthPerMinute, time.Minute)
	sendLimit := h.limiter.Limit(limitSend, h.opts.SendPerMinute, time.Minute)

	// Authentication
	g.POST("/auth/register", h.Register, authLimit)
	g.POST("/auth/login", h.Login, authLimit)
	g.POST("/auth/google", h.GoogleLogin, authLimit)
	g.POST("/auth/apple", h.AppleLogin, authLimit)

	// Users
	g.GET("/users/me", h.Me, authed, can(domain.ActionUsersMe))
	g.GET("/users/", h.ListUsers, authed, can(domain.ActionUsersList))
	g.GET("/users", h.ListUsers, authed, can(domain.ActionUsersList))

	// Chat
	g.POST("/chat/sessions", h.CreateSession, authed, can(domain.ActionSessionsWrite))
	g.GET("/chat/sessions", h.ListSessions, authed, can(domain.ActionSessionsRead))
	g.GET("/chat/sessions/:session_id/messages", h.ListMessages, authed, can(domain.ActionSessionsRead))
	g.DELETE("/chat/sessions/:session_id", h.DeleteSession, authed, can(domain.ActionSessionsWrite))
	g.POST("/chat/send", h.SendMessage, authed, can(domain.ActionChatSend), sendLimit)
	g.GET("/chat/ws", h.ChatWebSocket)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.opts.AllowedOrigins, "*") || slices.Contains(h.opts.AllowedOrigins, origin)
}
