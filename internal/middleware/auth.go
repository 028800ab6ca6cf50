package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/model"
)

// Context keys set by Authenticate.
const (
	PrincipalKey = "principal"
	UserIDKey    = "user_id"
)

// Verifier turns a bearer access token into the principal it was issued to.
type Verifier interface {
	Verify(accessToken string) (model.Principal, error)
}

// Authenticate rejects requests without a valid bearer access token and
// stores the principal in the context for handlers and later middleware.
func Authenticate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := v.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(PrincipalKey, p)
			c.Set(UserIDKey, p.UID)
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(model.Principal)
	return p, ok && p.UID != ""
}
