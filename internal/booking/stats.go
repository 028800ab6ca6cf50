package booking

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

// Stats is the admin dashboard summary.
type Stats struct {
	UserCount    int     `json:"userCount"`
	MovieCount   int     `json:"movieCount"`
	BookingCount int     `json:"bookingCount"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// Statistics scans the three collections concurrently. Revenue is the sum
// of every booking's totalPrice regardless of status, added up in cents so
// the total does not depend on document order.
func (a *Aggregator) Statistics(ctx context.Context) (Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := a.Users.All(ctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		s.UserCount = len(users)
		return nil
	})
	g.Go(func() error {
		movies, err := a.Movies.List(ctx)
		if err != nil {
			return fmt.Errorf("count movies: %w", err)
		}
		s.MovieCount = len(movies)
		return nil
	})
	g.Go(func() error {
		bookings, err := a.Bookings.All(ctx)
		if err != nil {
			return fmt.Errorf("count bookings: %w", err)
		}
		var cents int64
		for _, b := range bookings {
			cents += toCents(b.TotalPrice)
		}
		s.BookingCount = len(bookings)
		s.TotalRevenue = float64(cents) / 100
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func toCents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * 100))
}
