package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// Context keys set by middleware.Auth.
const (
	ContextUserID  = "user_id"
	ContextName    = "name"
	ContextEmail   = "email"
	ContextExpires = "expires"
)

// ctxUserID returns the caller id injected by the Auth middleware. A missing
// or non-positive id fails fast, before any service or store call.
func ctxUserID(c echo.Context) (int64, error) {
	id, _ := c.Get(ContextUserID).(int64)
	if id <= 0 {
		return 0, domain.ErrUnauthorized
	}
	return id, nil
}
