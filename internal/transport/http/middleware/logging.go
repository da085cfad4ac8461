package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo's error handler pick the status before logging it.
				c.Error(err)
			}

			req := c.Request()
			event := logger.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("remote_addr", c.RealIP())
			if user := CurrentUser(c); user != nil {
				event = event.Int64("user_id", user.ID)
			}
			if err != nil {
				event = event.Err(err)
			}
			event.Msg("request completed")
			return nil
		}
	}
}
