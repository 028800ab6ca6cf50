package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/middleware"
	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/report"
	"github.com/boxoffice/boxoffice/internal/validate"
)

// DefaultTimeout bounds the store work of one request.
const DefaultTimeout = 10 * time.Second

func requestCtx(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// bind decodes the body and runs the registered validator. Failures come
// back as a 400 *echo.HTTPError whose message is the JSON body.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(v); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": verr.Error(), "fields": verr.Fields})
		}
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return nil
}

// principal is only called behind middleware.Authenticate.
func principal(c echo.Context) model.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// statusParam reads ?status=; empty means all.
func statusParam(c echo.Context) (model.Status, error) {
	s := model.Status(strings.ToLower(strings.TrimSpace(c.QueryParam("status"))))
	if s != "" && !s.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return s, nil
}

// internalError logs err with its component and answers 500 with msg.
func internalError(c echo.Context, component, msg string, err error) error {
	log.Printf("%s: %s: %v", component, msg, err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

// sendExport renders views in the requested format as an attachment. The
// file is rendered in memory first so a failure can still answer 500.
func sendExport(c echo.Context, title string, views []booking.View) error {
	r, err := report.ForFormat(c.QueryParam("format"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, report.BuildTable(title, views)); err != nil {
		return internalError(c, "export", "render export failed", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", r.Filename()))
	return c.Blob(http.StatusOK, r.ContentType(), buf.Bytes())
}
