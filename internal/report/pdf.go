package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// column widths in mm; they add up to the printable width of A4 with 14mm margins
var pdfWidths = []float64{50, 25, 20, 40, 22, 25}

// PDFRenderer draws a titled grid table with a red header row.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Filename() string    { return "bookings.pdf" }

func (PDFRenderer) Render(w io.Writer, t Table) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetTitle(t.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(239, 68, 68)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetDrawColor(190, 190, 190)
		for i, h := range t.Header {
			pdf.CellFormat(colWidth(i), 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(14, 22, tr(t.Title))
	pdf.SetY(30)
	header()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range t.Rows {
		if pdf.GetY()+7 > pageH-bottom-20 {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(colWidth(i), 7, fit(pdf, tr(cell), colWidth(i)-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

func colWidth(i int) float64 {
	if i < len(pdfWidths) {
		return pdfWidths[i]
	}
	return 20
}

// fit shortens s with a trailing "..." until it fits in width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > width {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}
