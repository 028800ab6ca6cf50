// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/handler"
	"github.com/boxoffice/boxoffice/internal/middleware"
)

// RegisterRoutes exposes the health check.
func RegisterRoutes(e *echo.Echo, store docstore.Store) {
	e.GET("/healthz", handler.Health(store))
}

// RegisterAuth mounts /v1/auth, guarded by limit, plus the profile routes
// which need a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.Verifier, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout works with just a refresh token, so it is not behind Authenticate
	g.POST("/logout", a.Logout)
	g.POST("/password-reset", a.RequestPasswordReset)
	g.POST("/password-reset/confirm", a.ConfirmPasswordReset)

	me := e.Group("/v1/me", middleware.Authenticate(v))
	me.GET("", a.Me)
	me.PATCH("", a.UpdateMe)
}

// RegisterPublic mounts the catalog. cache sits in front of every route.
func RegisterPublic(e *echo.Echo, h *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/movies", cache)
	g.GET("", h.List)
	// static segment wins over :id in echo's router
	g.GET("/featured", h.Featured)
	g.GET("/:id", h.Get)
	g.GET("/:id/related", h.Related)
}
