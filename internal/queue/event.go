// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// BookingCreatedQueue is the durable queue booking events are routed to.
const BookingCreatedQueue = "booking.created"

// BookingCreatedEvent is published after a booking is stored. It carries
// enough for downstream consumers to log or notify without reading the
// document store.
type BookingCreatedEvent struct {
	BookingID  string   `json:"booking_id"`
	UserID     string   `json:"user_id"`
	UserEmail  string   `json:"user_email"`
	MovieID    string   `json:"movie_id"`
	MovieTitle string   `json:"movie_title"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Seats      []string `json:"seats,omitempty"`
	SeatCount  int      `json:"seat_count"`
	TotalPrice float64  `json:"total_price"`
	CreatedAt  string   `json:"created_at"`
}
