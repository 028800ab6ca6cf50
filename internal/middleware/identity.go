package middleware

import "github.com/labstack/echo/v4"

// userID is the caller's uid for keying, or "guest" before Authenticate ran.
func userID(c echo.Context) string {
	if s, ok := c.Get(UserIDKey).(string); ok && s != "" {
		return s
	}
	return "guest"
}
