package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// Register creates a password account and returns a token.
// POST /api/auth/register
func (h *Handler) Register(c echo.Context) error {
	var req domain.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}
	user, err := h.service.Register(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return h.respondToken(c, user)
}

// Login exchanges email and password for a token.
// POST /api/auth/login
func (h *Handler) Login(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}
	user, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return h.httpError(c, err)
	}
	return h.respondToken(c, user)
}

// GoogleLogin exchanges a Google ID token for a token.
// POST /api/auth/google
func (h *Handler) GoogleLogin(c echo.Context) error {
	var req domain.GoogleLoginRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return detail(c, http.StatusBadRequest, "token is required")
	}
	user, err := h.service.LoginGoogle(c.Request().Context(), req)
	if errors.Is(err, domain.ErrInvalidCredential) {
		return detail(c, http.StatusBadRequest, "Invalid Google Token")
	}
	if err != nil {
		return h.httpError(c, err)
	}
	return h.respondToken(c, user)
}

// AppleLogin exchanges a Sign in with Apple identity token for a token.
// POST /api/auth/apple
func (h *Handler) AppleLogin(c echo.Context) error {
	var req domain.AppleLoginRequest
	if err := c.Bind(&req); err != nil || req.IdentityToken == "" {
		return detail(c, http.StatusBadRequest, "identityToken is required")
	}
	user, err := h.service.LoginApple(c.Request().Context(), req)
	if errors.Is(err, domain.ErrInvalidCredential) {
		return detail(c, http.StatusBadRequest, "Invalid Apple Token")
	}
	if err != nil {
		return h.httpError(c, err)
	}
	return h.respondToken(c, user)
}

func (h *Handler) respondToken(c echo.Context, user *domain.User) error {
	token, err := h.service.IssueToken(user)
	if err != nil {
		return h.httpError(c, err)
	}
	return c.JSON(http.StatusOK, token)
}
