package router

import (
	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/handler"
	"github.com/boxoffice/boxoffice/internal/middleware"
)

// RegisterCustomer mounts the signed-in user's booking routes.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, v middleware.Verifier) {
	g := e.Group("/v1", middleware.Authenticate(v))
	g.POST("/bookings", h.Create)
	g.GET("/my-bookings", h.ListMine)
	g.GET("/my-bookings/export", h.ExportMine)
}
