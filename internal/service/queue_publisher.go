// Package service holds outbound adapters used by the booking flow. The
// queue publisher sends domain events to RabbitMQ; failures are logged and
// returned so callers can decide to ignore them.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/boxoffice/boxoffice/internal/queue"
)

// QueuePublisher opens a short-lived connection per event. Booking creation
// is infrequent enough that pooling channels is not worth the reconnect logic.
type QueuePublisher struct {
	URL string
}

func NewQueuePublisher(url string) *QueuePublisher { return &QueuePublisher{URL: url} }

// PublishBookingCreated sends ev to the durable booking.created queue as a
// persistent message.
func (p *QueuePublisher) PublishBookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event: %v", err)
		return err
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.BookingCreatedQueue, // name
		true,                      // durable
		false,                     // autoDelete
		false,                     // exclusive
		false,                     // noWait
		nil,                       // args
	); err != nil {
		log.Printf("rabbitmq: queue declare: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.BookingID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.BookingCreatedQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish: %v", err)
		return err
	}
	return nil
}
