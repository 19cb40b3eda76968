package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/issuetracker/issues-api/internal/api/handler"
	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
)

// Auth validates the bearer token and injects the caller identity into the
// context. Requests without a valid token never reach the handler.
func Auth(sessions ports.SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthorized
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return domain.ErrUnauthorized
			}

			claims, err := sessions.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(handler.ContextUserID, claims.UserID)
			c.Set(handler.ContextName, claims.Name)
			c.Set(handler.ContextEmail, claims.Email)
			c.Set(handler.ContextExpires, claims.ExpiresAt)

			return next(c)
		}
	}
}
