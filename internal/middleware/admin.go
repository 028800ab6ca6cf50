package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/session"
)

// RequireAdmin lets a request through only when the caller's users document
// has admin set to true. It must run after Authenticate. The flag is read on
// every request; nothing is cached.
func RequireAdmin(users session.UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if !session.ResolveAdmin(c.Request().Context(), users, p.UID) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
