package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/model"
)

func duneView() booking.View {
	b := model.BookingFromDoc("b1", map[string]any{
		"movieId":    "m1",
		"seats":      "A1, A2",
		"totalPrice": 25,
		"status":     "confirmed",
		"date":       "2025-07-01",
		"time":       "18:00",
	})
	return booking.NewView(b, &model.Movie{ID: "m1", Title: "Dune"}, nil)
}

func TestBuildTableScenario(t *testing.T) {
	tbl := BuildTable(TitleUser, []booking.View{duneView()})
	assert.Equal(t, Header, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"Dune", "2025-07-01", "18:00", "A1, A2", "25.00", "CONFIRMED"}, tbl.Rows[0])
}

func TestBuildTableMissingMovie(t *testing.T) {
	b := model.BookingFromDoc("b2", map[string]any{"seats": []any{"B1", "B2"}, "totalPrice": 7.5, "status": "cancelled"})
	tbl := BuildTable(TitleUser, []booking.View{booking.NewView(b, nil, nil)})
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"", "N/A", "", "B1, B2", "7.50", "CANCELLED"}, tbl.Rows[0])
}

func TestBuildTableSeatRepresentationsAgree(t *testing.T) {
	asList := model.BookingFromDoc("x", map[string]any{"seats": []any{"A1", "A2"}})
	asString := model.BookingFromDoc("y", map[string]any{"seats": "A1,A2"})
	tbl := BuildTable("", []booking.View{booking.NewView(asList, nil, nil), booking.NewView(asString, nil, nil)})
	assert.Equal(t, tbl.Rows[0][3], tbl.Rows[1][3])
}

func TestCSVEmptyIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVRenderer{}.Render(&buf, BuildTable(TitleUser, nil)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{Header}, records)
}

func TestCSVRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVRenderer{}.Render(&buf, BuildTable(TitleUser, []booking.View{duneView()})))
	assert.Equal(t, "Movie,Date,Time,Seats,Price,Status\nDune,2025-07-01,18:00,\"A1, A2\",25.00,CONFIRMED\n", buf.String())
}

func TestPDFRender(t *testing.T) {
	long := duneView()
	long.Movie = &model.Movie{Title: strings.Repeat("Very Long Title ", 10)}
	views := []booking.View{duneView(), long}
	for i := 0; i < 80; i++ {
		views = append(views, duneView())
	}

	for _, in := range [][]booking.View{nil, views} {
		var buf bytes.Buffer
		require.NoError(t, PDFRenderer{}.Render(&buf, BuildTable(TitleAdmin, in)))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	}
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, "bookings.pdf", r.Filename())

	r, err = ForFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, "bookings.csv", r.Filename())

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}
