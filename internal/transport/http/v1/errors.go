package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// httpError writes the JSON error response for err. Unexpected errors are
// logged and reported without detail.
func (h *Handler) httpError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return detail(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		return detail(c, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, domain.ErrInvalidCredential):
		return detail(c, http.StatusBadRequest, "Incorrect email or password")
	case errors.Is(err, domain.ErrProviderUnavailable):
		return detail(c, http.StatusBadRequest, "Identity provider unavailable")
	case errors.Is(err, domain.ErrNotFound):
		return detail(c, http.StatusNotFound, "Session not found")
	case errors.Is(err, domain.ErrForbidden):
		return detail(c, http.StatusForbidden, "Not authorized")
	}

	h.logger.Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("request failed")
	return detail(c, http.StatusInternalServerError, "Internal server error")
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, domain.ErrorResponse{Detail: msg})
}
