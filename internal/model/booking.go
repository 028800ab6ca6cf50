package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Status is a booking's lifecycle state. Values outside the known set are
// kept verbatim so that nothing stored is lost on read.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Label is the display form, e.g. "Confirmed".
func (s Status) Label() string {
	if s == "" {
		return "Unknown"
	}
	r, n := utf8.DecodeRuneInString(string(s))
	return string(unicode.ToUpper(r)) + string(s[n:])
}

// Seats holds either seat labels or, for bookings made by count, just the
// number of seats.
type Seats struct {
	Labels []string
	Count  int
}

// SeatsFromValue accepts a label list, a comma-joined string or a number.
func SeatsFromValue(v any) Seats {
	switch x := v.(type) {
	case []string:
		return seatLabels(x)
	case []any:
		labels := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				labels = append(labels, s)
			}
		}
		return seatLabels(labels)
	case string:
		return seatLabels(strings.Split(x, ","))
	}
	if n, ok := toFloat(v); ok && n > 0 {
		return Seats{Count: int(n)}
	}
	return Seats{}
}

func seatLabels(raw []string) Seats {
	labels := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	return Seats{Labels: labels, Count: len(labels)}
}

func (s Seats) Len() int {
	if len(s.Labels) > 0 {
		return len(s.Labels)
	}
	return s.Count
}

// String joins labels with ", ", or renders the count when there are none.
func (s Seats) String() string {
	if len(s.Labels) > 0 {
		return strings.Join(s.Labels, ", ")
	}
	if s.Count > 0 {
		return strconv.Itoa(s.Count)
	}
	return ""
}

// MarshalJSON writes the label list, or the bare count.
func (s Seats) MarshalJSON() ([]byte, error) {
	if len(s.Labels) == 0 && s.Count > 0 {
		return json.Marshal(s.Count)
	}
	if s.Labels == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Labels)
}

// NormalizeSeats renders any accepted seat representation as one string.
func NormalizeSeats(v any) string { return SeatsFromValue(v).String() }

// ShowDate is the calendar date of a screening. Time is set when the stored
// value could be parsed; otherwise Raw keeps the original string.
type ShowDate struct {
	Time time.Time
	Raw  string
}

func ShowDateFromValue(v any) ShowDate {
	if t, ok := toTime(v); ok {
		return ShowDate{Time: t}
	}
	if s, ok := v.(string); ok {
		return ShowDate{Raw: strings.TrimSpace(s)}
	}
	return ShowDate{}
}

// String is YYYY-MM-DD, the unparsed raw string, or "N/A".
func (d ShowDate) String() string {
	if !d.Time.IsZero() {
		return d.Time.UTC().Format("2006-01-02")
	}
	if d.Raw != "" {
		return d.Raw
	}
	return "N/A"
}

func (d ShowDate) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// Booking is a document in the `bookings` collection, normalized on read.
//
// Fields:
//
//	Date       – stored as a timestamp or a string.
//	Seats      – stored as a label list, a comma-joined string or a count.
//	TotalPrice – seat count × ticket price at creation; never re-validated.
type Booking struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movieId"`    // bookings.movieId
	UserID     string    `json:"userId"`     // bookings.userId
	Date       ShowDate  `json:"date"`       // bookings.date
	Time       string    `json:"time"`       // bookings.time
	Seats      Seats     `json:"seats"`      // bookings.seats
	TotalPrice float64   `json:"totalPrice"` // bookings.totalPrice
	Status     Status    `json:"status"`     // bookings.status
	CreatedAt  time.Time `json:"createdAt"`  // bookings.createdAt
}

func BookingFromDoc(id string, data map[string]any) Booking {
	return Booking{
		ID:         id,
		MovieID:    str(data, "movieId"),
		UserID:     str(data, "userId"),
		Date:       ShowDateFromValue(data["date"]),
		Time:       str(data, "time"),
		Seats:      SeatsFromValue(data["seats"]),
		TotalPrice: num(data, "totalPrice"),
		Status:     Status(str(data, "status")),
		CreatedAt:  timestamp(data, "createdAt"),
	}
}
