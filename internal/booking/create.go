package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/queue"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// MaxSeats caps a single booking.
const MaxSeats = 10

// ErrInvalidBooking wraps every validation failure of CreateBooking.
var ErrInvalidBooking = errors.New("invalid booking")

// Request is a booking as submitted. Either Seats (labels) or SeatCount is set.
type Request struct {
	MovieID   string
	Date      string // YYYY-MM-DD or RFC3339
	Time      string
	Seats     []string
	SeatCount int
}

type BookingWriter interface {
	Create(ctx context.Context, b repository.NewBooking) (model.Booking, error)
}

type Publisher interface {
	PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
}

// Creator stores new bookings. There is no seat inventory: two bookings of
// the same seat both succeed.
type Creator struct {
	Movies   MovieSource
	Bookings BookingWriter
	Events   Publisher // optional
}

// CreateBooking validates req against the movie, prices it at seat count ×
// ticket price and stores it as confirmed.
func (c *Creator) CreateBooking(ctx context.Context, p model.Principal, req Request) (View, error) {
	movie, err := c.Movies.Get(ctx, req.MovieID)
	if err != nil {
		return View{}, err
	}

	date, err := parseShowDate(req.Date)
	if err != nil {
		return View{}, err
	}
	showtime := strings.TrimSpace(req.Time)
	if showtime == "" {
		return View{}, fmt.Errorf("%w: time is required", ErrInvalidBooking)
	}
	if !movie.HasShowtime(showtime) {
		return View{}, fmt.Errorf("%w: %q is not a showtime of %s", ErrInvalidBooking, showtime, movie.Title)
	}

	seats, err := requestSeats(req)
	if err != nil {
		return View{}, err
	}

	total := float64(toCents(float64(seats.Len())*movie.TicketPrice)) / 100
	b, err := c.Bookings.Create(ctx, repository.NewBooking{
		MovieID:    movie.ID,
		UserID:     p.UID,
		Date:       date,
		Time:       showtime,
		Seats:      seats,
		TotalPrice: total,
	})
	if err != nil {
		return View{}, err
	}

	if c.Events != nil {
		ev := queue.BookingCreatedEvent{
			BookingID:  b.ID,
			UserID:     p.UID,
			UserEmail:  p.Email,
			MovieID:    movie.ID,
			MovieTitle: movie.Title,
			Date:       b.Date.String(),
			Time:       b.Time,
			Seats:      b.Seats.Labels,
			SeatCount:  b.Seats.Len(),
			TotalPrice: b.TotalPrice,
			CreatedAt:  b.CreatedAt.Format(time.RFC3339),
		}
		if err := c.Events.PublishBookingCreated(ctx, ev); err != nil {
			log.Printf("booking: publish booking.created for %s: %v", b.ID, err)
		}
	}
	return NewView(b, &movie, nil), nil
}

func parseShowDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidBooking, s)
}

func requestSeats(req Request) (model.Seats, error) {
	var seats model.Seats
	if len(req.Seats) > 0 {
		seats = model.SeatsFromValue(req.Seats)
		seen := make(map[string]bool, len(seats.Labels))
		for _, l := range seats.Labels {
			if seen[l] {
				return model.Seats{}, fmt.Errorf("%w: seat %s listed twice", ErrInvalidBooking, l)
			}
			seen[l] = true
		}
	} else {
		seats = model.Seats{Count: req.SeatCount}
	}
	if n := seats.Len(); n < 1 || n > MaxSeats {
		return model.Seats{}, fmt.Errorf("%w: between 1 and %d seats per booking", ErrInvalidBooking, MaxSeats)
	}
	return seats, nil
}
