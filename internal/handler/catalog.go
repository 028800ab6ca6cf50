package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// CatalogHandler serves the public, unauthenticated movie endpoints.
type CatalogHandler struct {
	Movies  *repository.MovieRepo
	Timeout time.Duration
}

func NewCatalogHandler(m *repository.MovieRepo, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{Movies: m, Timeout: timeout}
}

func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()
	movies, err := h.Movies.List(ctx)
	if err != nil {
		return internalError(c, "catalog", "list movies failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(movies)})
}

// Featured returns the newest movies.
func (h *CatalogHandler) Featured(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()
	movies, err := h.Movies.Featured(ctx)
	if err != nil {
		return internalError(c, "catalog", "list featured movies failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(movies)})
}

func (h *CatalogHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()
	m, err := h.Movies.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}
	if err != nil {
		return internalError(c, "catalog", "load movie failed", err)
	}
	return c.JSON(http.StatusOK, m)
}

// Related lists up to four movies sharing one of the first two genres of
// the given movie, never including the movie itself.
func (h *CatalogHandler) Related(c echo.Context) error {
	ctx, cancel := requestCtx(c, h.Timeout)
	defer cancel()
	m, err := h.Movies.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrMovieNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
	}
	if err != nil {
		return internalError(c, "catalog", "load movie failed", err)
	}
	related, err := h.Movies.Related(ctx, m.ID, m.Genre)
	if err != nil {
		return internalError(c, "catalog", "list related movies failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(related)})
}

func nonNil(m []model.Movie) []model.Movie {
	if m == nil {
		return []model.Movie{}
	}
	return m
}
