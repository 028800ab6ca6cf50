package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	ev := BookingCreatedEvent{
		BookingID:  "b1",
		UserID:     "u1",
		UserEmail:  "ana@example.com",
		MovieTitle: "Dune",
		Date:       "2025-07-01",
		Time:       "18:00",
		Seats:      []string{"A1", "A2"},
		SeatCount:  2,
		TotalPrice: 25,
		CreatedAt:  "2025-06-30T10:00:00Z",
	}
	assert.Equal(t,
		"[2025-06-30T10:00:00Z] Booking created | booking_id=b1 | user_id=u1 | email=\"ana@example.com\" | movie=\"Dune\" | date=2025-07-01 18:00 | seats=[A1,A2] | total=25.00\n",
		formatLine(ev))

	ev.Seats = nil
	ev.SeatCount = 3
	assert.Contains(t, formatLine(ev), "| seats=3 |")
}

func TestHandleMessageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "booking.log")
	c := NewConsumer("amqp://unused", path)

	body, err := json.Marshal(BookingCreatedEvent{BookingID: "b1", SeatCount: 1})
	require.NoError(t, err)
	require.NoError(t, c.handleMessage(body))
	require.NoError(t, c.handleMessage(body))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "\n"))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", filepath.Join(t.TempDir(), "booking.log"))
	assert.Error(t, c.handleMessage([]byte("not json")))
	assert.Error(t, c.handleMessage([]byte(`{"user_id":"u1"}`)))
}

func TestNewConsumerDefaultsLogPath(t *testing.T) {
	assert.Equal(t, DefaultLogPath, NewConsumer("amqp://x", "").LogPath)
}
