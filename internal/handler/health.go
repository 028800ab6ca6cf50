package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// Health answers "ok" when the document store responds. It reads a document
// that never exists, so not-found is the healthy answer.
func Health(store docstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		_, err := store.Get(ctx, repository.Movies, "_healthz")
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			log.Printf("health: store: %v", err)
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}
