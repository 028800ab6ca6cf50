package report

import (
	"encoding/csv"
	"io"
)

type CSVRenderer struct{}

func (CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVRenderer) Filename() string    { return "bookings.csv" }

// Render writes the header row then the data rows. The title is not part
// of the CSV.
func (CSVRenderer) Render(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
