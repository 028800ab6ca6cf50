// Package report flattens joined bookings into a fixed six-column table and
// renders it as a downloadable file.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/boxoffice/boxoffice/internal/booking"
)

// Header is the column layout of every export.
var Header = []string{"Movie", "Date", "Time", "Seats", "Price", "Status"}

const (
	TitleUser  = "My Movie Bookings"
	TitleAdmin = "All Bookings"
)

type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// BuildTable makes one row per view. A view without its movie gets an
// empty Movie cell.
func BuildTable(title string, views []booking.View) Table {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		movie := ""
		if v.Movie != nil {
			movie = v.Movie.Title
		}
		rows = append(rows, []string{
			movie,
			v.Booking.Date.String(),
			v.Time,
			v.Seats.String(),
			fmt.Sprintf("%.2f", v.TotalPrice),
			strings.ToUpper(string(v.Status)),
		})
	}
	return Table{Title: title, Header: append([]string(nil), Header...), Rows: rows}
}

// Renderer writes a table in one file format.
type Renderer interface {
	ContentType() string
	Filename() string
	Render(w io.Writer, t Table) error
}

// ForFormat returns the renderer for "pdf" (the default) or "csv".
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "pdf":
		return PDFRenderer{}, nil
	case "csv":
		return CSVRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
