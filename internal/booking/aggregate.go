// Package booking joins bookings with the movies and users they reference,
// derives the display fields, and reduces the collections to dashboard
// statistics. Nothing here is cached: every call reads the store again.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/boxoffice/boxoffice/internal/model"
	"github.com/boxoffice/boxoffice/internal/repository"
)

// View is a booking with its referenced documents embedded. Movie and User
// are nil when the lookup failed or was not requested.
type View struct {
	model.Booking
	Movie         *model.Movie `json:"movie,omitempty"`
	User          *model.User  `json:"user,omitempty"`
	FormattedDate string       `json:"formattedDate"`
	SeatCount     int          `json:"seatCount"`
	SeatsText     string       `json:"seatsText"`
	StatusLabel   string       `json:"statusLabel"`
}

func NewView(b model.Booking, m *model.Movie, u *model.User) View {
	return View{
		Booking:       b,
		Movie:         m,
		User:          u,
		FormattedDate: b.Date.String(),
		SeatCount:     b.Seats.Len(),
		SeatsText:     b.Seats.String(),
		StatusLabel:   b.Status.Label(),
	}
}

// Policy decides what happens to a record whose embeds could not all be loaded.
type Policy int

const (
	// KeepPartial returns the record with the missing embed left nil.
	KeepPartial Policy = iota
	// RequireAll drops the record.
	RequireAll
)

func (p Policy) String() string {
	if p == RequireAll {
		return "require-all"
	}
	return "keep-partial"
}

// ParsePolicy accepts "require-all" and "keep-partial". Empty means
// RequireAll, the admin listing's default.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "require-all", "":
		return RequireAll, nil
	case "keep-partial":
		return KeepPartial, nil
	}
	return RequireAll, fmt.Errorf("unknown join policy %q", s)
}

type BookingSource interface {
	ListByUser(ctx context.Context, userID string, status model.Status) ([]model.Booking, error)
	ListAll(ctx context.Context, status model.Status) ([]model.Booking, error)
	All(ctx context.Context) ([]model.Booking, error)
}

type MovieSource interface {
	Get(ctx context.Context, id string) (model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
}

type UserSource interface {
	Get(ctx context.Context, uid string) (model.User, error)
	All(ctx context.Context) ([]model.User, error)
}

// DefaultFanOut bounds concurrent point reads per join.
const DefaultFanOut = 16

// Aggregator runs the booking joins. The user-facing listing always keeps
// partially joined records; AdminPolicy governs the admin listing, which
// historically drops any record missing its movie or its user.
type Aggregator struct {
	Bookings    BookingSource
	Movies      MovieSource
	Users       UserSource
	FanOut      int
	AdminPolicy Policy
}

func NewAggregator(b BookingSource, m MovieSource, u UserSource) *Aggregator {
	return &Aggregator{Bookings: b, Movies: m, Users: u, FanOut: DefaultFanOut, AdminPolicy: RequireAll}
}

// ListForUser returns the user's bookings, optionally narrowed to status,
// each joined with its movie. The result has one view per stored booking.
func (a *Aggregator) ListForUser(ctx context.Context, userID string, status model.Status) ([]View, error) {
	bookings, err := a.Bookings.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}
	return a.join(ctx, bookings, false, KeepPartial)
}

// ListAll returns every booking newest first, joined with movie and user,
// filtered by AdminPolicy.
func (a *Aggregator) ListAll(ctx context.Context, status model.Status) ([]View, error) {
	bookings, err := a.Bookings.ListAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return a.join(ctx, bookings, true, a.AdminPolicy)
}

type embeds struct {
	movie *model.Movie
	user  *model.User
}

func (a *Aggregator) join(ctx context.Context, bookings []model.Booking, withUser bool, policy Policy) ([]View, error) {
	results := Settle(ctx, bookings, a.FanOut, func(ctx context.Context, b model.Booking) (embeds, error) {
		var (
			e    embeds
			errs []error
		)
		if m, err := a.Movies.Get(ctx, b.MovieID); err != nil {
			errs = append(errs, fmt.Errorf("movie %q: %w", b.MovieID, err))
		} else {
			e.movie = &m
		}
		if withUser {
			if u, err := a.Users.Get(ctx, b.UserID); err != nil {
				errs = append(errs, fmt.Errorf("user %q: %w", b.UserID, err))
			} else {
				e.user = &u
			}
		}
		return e, errors.Join(errs...)
	})

	// The caller may have gone away while the batch was in flight.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	views := make([]View, 0, len(bookings))
	for i, r := range results {
		if r.Err != nil && !onlyNotFound(r.Err) {
			log.Printf("booking: join %s: %v", bookings[i].ID, r.Err)
		}
		if policy == RequireAll && (r.Value.movie == nil || (withUser && r.Value.user == nil)) {
			continue
		}
		views = append(views, NewView(bookings[i], r.Value.movie, r.Value.user))
	}
	return views, nil
}

// onlyNotFound reports whether err consists only of dangling references,
// which are expected after a movie is deleted.
func onlyNotFound(err error) bool {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !onlyNotFound(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, repository.ErrMovieNotFound) || errors.Is(err, repository.ErrUserNotFound)
}
