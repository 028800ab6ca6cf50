package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/model"
)

// NewBooking is a validated booking ready to be stored.
type NewBooking struct {
	MovieID    string
	UserID     string
	Date       time.Time
	Time       string
	Seats      model.Seats
	TotalPrice float64
}

type BookingRepo struct{ Store docstore.Store }

func NewBookingRepo(s docstore.Store) *BookingRepo { return &BookingRepo{Store: s} }

func (r *BookingRepo) query(ctx context.Context, q docstore.Query) ([]model.Booking, error) {
	docs, err := r.Store.Query(ctx, Bookings, q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.BookingFromDoc(d.ID, d.Data))
	}
	return out, nil
}

// ListByUser returns the user's bookings in store order, narrowed to status
// when it is non-empty.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string, status model.Status) ([]model.Booking, error) {
	q := docstore.Query{}.Where("userId", docstore.OpEq, userID)
	if status != "" {
		q = q.Where("status", docstore.OpEq, string(status))
	}
	return r.query(ctx, q)
}

// ListAll returns every booking, newest first.
func (r *BookingRepo) ListAll(ctx context.Context, status model.Status) ([]model.Booking, error) {
	q := docstore.Query{}
	if status != "" {
		q = q.Where("status", docstore.OpEq, string(status))
	}
	return r.query(ctx, q.Order("createdAt", docstore.Desc))
}

// All is an unordered full scan, so documents lacking createdAt are included.
func (r *BookingRepo) All(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, docstore.Query{})
}

func (r *BookingRepo) Get(ctx context.Context, id string) (model.Booking, error) {
	doc, err := r.Store.Get(ctx, Bookings, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return model.Booking{}, err
	}
	return model.BookingFromDoc(doc.ID, doc.Data), nil
}

// Create inserts a confirmed booking. Seats are stored as labels when the
// caller picked seats and as a plain count otherwise.
func (r *BookingRepo) Create(ctx context.Context, b NewBooking) (model.Booking, error) {
	var seats any = b.Seats.Count
	if len(b.Seats.Labels) > 0 {
		seats = stringsToAny(b.Seats.Labels)
	}
	id, err := r.Store.Add(ctx, Bookings, map[string]any{
		"movieId":    b.MovieID,
		"userId":     b.UserID,
		"date":       b.Date.UTC(),
		"time":       b.Time,
		"seats":      seats,
		"totalPrice": b.TotalPrice,
		"status":     string(model.StatusConfirmed),
		"createdAt":  docstore.ServerTimestamp,
	})
	if err != nil {
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	return r.Get(ctx, id)
}
