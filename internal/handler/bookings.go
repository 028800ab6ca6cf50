package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/report"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// BookingHandler serves the signed-in user's bookings.
type BookingHandler struct {
	Aggregator *booking.Aggregator
	Creator    *booking.Creator
	Timeout    time.Duration
}

func NewBookingHandler(a *booking.Aggregator, cr *booking.Creator, timeout time.Duration) *BookingHandler {
	return &BookingHandler{Aggregator: a, Creator: cr, Timeout: timeout}
}

// createBookingReq takes either seat labels or a plain seat count.
type createBookingReq struct {
	MovieID   string   `json:"movieId" validate:"required"`
	Date      string   `json:"date" validate:"required,showdate"`
	Time      string   `json:"time" validate:"required,clock"`
	Seats     []string `json:"seats" validate:"omitempty,max=10,dive,seat"`
	SeatCount int      `json:"seatCount" validate:"omitempty,gte=1,lte=10"`
}

func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	seats := make([]string, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	v, err := h.Creator.CreateBooking(ctx, principal(c), booking.Request{
		MovieID:   req.MovieID,
		Date:      req.Date,
		Time:      req.Time,
		Seats:     seats,
		SeatCount: req.SeatCount,
	})
	switch {
	case errors.Is(err, repository.ErrMovieNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	case errors.Is(err, booking.ErrInvalidBooking):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		return internalError(c, "bookings", "create booking failed", err)
	}
	return c.JSON(http.StatusCreated, v)
}

// ListMine returns the caller's bookings joined with their movies. Bookings
// whose movie is gone are still listed, without a movie.
func (h *BookingHandler) ListMine(c echo.Context) error {
	return h.withMine(c, func(views []booking.View) error {
		return c.JSON(http.StatusOK, echo.Map{"items": views})
	})
}

// ExportMine downloads the caller's bookings as PDF (default) or CSV.
func (h *BookingHandler) ExportMine(c echo.Context) error {
	return h.withMine(c, func(views []booking.View) error {
		return sendExport(c, report.TitleUser, views)
	})
}

func (h *BookingHandler) withMine(c echo.Context, then func([]booking.View) error) error {
	status, err := statusParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	views, err := h.Aggregator.ListForUser(ctx, principal(c).UID, status)
	if err != nil {
		return internalError(c, "bookings", "list bookings failed", err)
	}
	return then(views)
}
