package router

import (
	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/handler"
	"github.com/boxoffice/boxoffice/internal/middleware"
	"github.com/boxoffice/boxoffice/internal/session"
)

// RegisterAdmin mounts /v1/admin. Admin status is read from the caller's
// users document on every request.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, v middleware.Verifier, users session.UserLookup) {
	g := e.Group("/v1/admin", middleware.Authenticate(v), middleware.RequireAdmin(users))

	g.POST("/movies", h.CreateMovie)
	g.PUT("/movies/:id", h.ReplaceMovie)
	g.PATCH("/movies/:id", h.PatchMovie)
	g.DELETE("/movies/:id", h.DeleteMovie)

	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/export", h.ExportBookings)
	g.GET("/users", h.ListUsers)
	g.GET("/stats", h.Stats)
}
