package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/report"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// Purger drops cached catalog responses after a movie write.
type Purger interface {
	Purge(ctx context.Context)
}

// AdminHandler serves the admin console. Every route sits behind
// middleware.RequireAdmin.
type AdminHandler struct {
	Movies     *repository.MovieRepo
	Users      *repository.UserRepo
	Aggregator *booking.Aggregator
	Cache      Purger // optional
	Timeout    time.Duration
}

func NewAdminHandler(m *repository.MovieRepo, u *repository.UserRepo, a *booking.Aggregator, cache Purger, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Movies: m, Users: u, Aggregator: a, Cache: cache, Timeout: timeout}
}

type movieReq struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	PosterURL   string   `json:"posterUrl" validate:"omitempty,url"`
	MovieBg     string   `json:"movieBg" validate:"omitempty,url"`
	Genre       []string `json:"genre" validate:"required,min=1,dive,required"`
	Rating      string   `json:"rating" validate:"max=10"`
	Runtime     int      `json:"runtime" validate:"gte=0,lte=1000"`
	ReleaseYear int      `json:"releaseYear" validate:"omitempty,gte=1888,lte=2100"`
	TicketPrice float64  `json:"ticketPrice" validate:"gte=0"`
	Showtimes   []string `json:"showtimes" validate:"omitempty,dive,clock"`
}

// moviePatchReq leaves absent fields untouched.
type moviePatchReq struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	PosterURL   *string   `json:"posterUrl" validate:"omitempty,url"`
	MovieBg     *string   `json:"movieBg" validate:"omitempty,url"`
	Genre       *[]string `json:"genre" validate:"omitempty,min=1,dive,required"`
	Rating      *string   `json:"rating" validate:"omitempty,max=10"`
	Runtime     *int      `json:"runtime" validate:"omitempty,gte=0,lte=1000"`
	ReleaseYear *int      `json:"releaseYear" validate:"omitempty,gte=1888,lte=2100"`
	TicketPrice *float64  `json:"ticketPrice" validate:"omitempty,gte=0"`
	Showtimes   *[]string `json:"showtimes" validate:"omitempty,dive,clock"`
}

func (h *AdminHandler) purge(ctx context.Context) {
	if h.Cache != nil {
		h.Cache.Purge(ctx)
	}
}

func (h *AdminHandler) CreateMovie(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	m, err := h.Movies.Create(ctx, repository.MovieInput{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		MovieBg:     req.MovieBg,
		Genre:       req.Genre,
		Rating:      req.Rating,
		Runtime:     req.Runtime,
		ReleaseYear: req.ReleaseYear,
		TicketPrice: req.TicketPrice,
		Showtimes:   req.Showtimes,
	})
	if err != nil {
		return internalError(c, "admin", "create movie failed", err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, m)
}

// ReplaceMovie (PUT) writes every editable field.
func (h *AdminHandler) ReplaceMovie(c echo.Context) error {
	var req movieReq
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, repository.MoviePatch{
		Title:       &req.Title,
		Description: &req.Description,
		PosterURL:   &req.PosterURL,
		MovieBg:     &req.MovieBg,
		Genre:       &req.Genre,
		Rating:      &req.Rating,
		Runtime:     &req.Runtime,
		ReleaseYear: &req.ReleaseYear,
		TicketPrice: &req.TicketPrice,
		Showtimes:   &req.Showtimes,
	})
}

// PatchMovie (PATCH) writes only the fields present in the body.
func (h *AdminHandler) PatchMovie(c echo.Context) error {
	var req moviePatchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.update(c, repository.MoviePatch{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		MovieBg:     req.MovieBg,
		Genre:       req.Genre,
		Rating:      req.Rating,
		Runtime:     req.Runtime,
		ReleaseYear: req.ReleaseYear,
		TicketPrice: req.TicketPrice,
		Showtimes:   req.Showtimes,
	})
}

func (h *AdminHandler) update(c echo.Context, p repository.MoviePatch) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	m, err := h.Movies.Update(ctx, c.Param("id"), p)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}
	if err != nil {
		return internalError(c, "admin", "update movie failed", err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie removes the movie. Bookings that reference it stay and show
// up without a movie from then on.
func (h *AdminHandler) DeleteMovie(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	if err := h.Movies.Delete(ctx, c.Param("id")); err != nil {
		return internalError(c, "admin", "delete movie failed", err)
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

// ListBookings returns all bookings newest first, joined with movie and user.
func (h *AdminHandler) ListBookings(c echo.Context) error {
	return h.withAll(c, func(views []booking.View) error {
		return c.JSON(http.StatusOK, echo.Map{"items": views})
	})
}

func (h *AdminHandler) ExportBookings(c echo.Context) error {
	return h.withAll(c, func(views []booking.View) error {
		return sendExport(c, report.TitleAdmin, views)
	})
}

func (h *AdminHandler) withAll(c echo.Context, then func([]booking.View) error) error {
	status, err := statusParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	views, err := h.Aggregator.ListAll(ctx, status)
	if err != nil {
		return internalError(c, "admin", "list bookings failed", err)
	}
	return then(views)
}

// ListUsers returns every user, newest first.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return internalError(c, "admin", "list users failed", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users})
}

func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()

	s, err := h.Aggregator.Statistics(ctx)
	if err != nil {
		return internalError(c, "admin", "load statistics failed", err)
	}
	return c.JSON(http.StatusOK, s)
}
