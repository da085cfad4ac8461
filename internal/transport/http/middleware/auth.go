// Package middleware holds the echo middleware shared by the HTTP transport.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

const userContextKey = "titanbot.user"

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Authorizer evaluates the access policy for a user and action.
type Authorizer interface {
	Authorize(ctx context.Context, user *domain.User, action string) error
}

// RequireUser rejects requests without a valid bearer token and stores the
// authenticated user on the context.
func RequireUser(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c)
			}
			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil || !user.IsActive {
				return unauthorized(c)
			}
			SetUser(c, user)
			return next(c)
		}
	}
}

// RequireAction rejects requests the access policy denies. It must run after
// RequireUser.
func RequireAction(authz Authorizer, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return unauthorized(c)
			}
			if err := authz.Authorize(c.Request().Context(), user, action); err != nil {
				return c.JSON(http.StatusForbidden, domain.ErrorResponse{Detail: "Not authorized"})
			}
			return next(c)
		}
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SetUser stores the authenticated user on the request context.
func SetUser(c echo.Context, user *domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, domain.ErrorResponse{Detail: "Could not validate credentials"})
}
