// Package http provides the HTTP server for the chat API.
package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Abdulkalam-AIML/titanbot/internal/service"
	"github.com/Abdulkalam-AIML/titanbot/internal/transport/http/middleware"
	v1 "github.com/Abdulkalam-AIML/titanbot/internal/transport/http/v1"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Config holds server settings.
type Config struct {
	APIPrefix   string
	CORSOrigins []string
	Handler     v1.Options
}

// Server is the public HTTP server.
type Server struct {
	echo    *echo.Echo
	service *service.Service
	logger  zerolog.Logger
}

// NewServer creates and configures the HTTP server. limiter may be nil.
func NewServer(svc *service.Service, limiter *middleware.RateLimiter, cfg Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  origins,
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{v1.HeaderSessionID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
	}))

	s := &Server{echo: e, service: svc, logger: logger}

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handlerOpts := cfg.Handler
	if handlerOpts.AllowedOrigins == nil {
		handlerOpts.AllowedOrigins = origins
	}
	api := e.Group(strings.TrimRight(cfg.APIPrefix, "/"))
	v1.NewHandler(svc, limiter, handlerOpts, logger).RegisterRoutes(api)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "TitanBot API is running"})
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.service.Ping(c.Request().Context()); err != nil {
		s.logger.Warn().Err(err).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"version": Version,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
