package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c echo.Context) (uuid.UUID, bool) {
	s, ok := c.Get(CtxUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Role returns the role claim set by JWTAuth.
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// currentUserID is the rate limit key component for the caller.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
