// Package events carries booking lifecycle events to RabbitMQ and settles
// payments reported by the payment service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

// BookingMessage is the JSON body of every booking.* message.
type BookingMessage struct {
	EventID    string    `json:"event_id"`
	BookingID  string    `json:"booking_id"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorRole  string    `json:"actor_role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes booking events on a topic exchange, routed by event
// type (booking.accepted, booking.confirmed, ...).
type Publisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch channel
}

// DialPublisher connects to url and declares exchange.
func DialPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Publish implements app.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev domain.BookingEvent) error {
	body, err := json.Marshal(BookingMessage{
		EventID:    ev.ID,
		BookingID:  ev.BookingID,
		Status:     string(ev.Status),
		ActorID:    ev.ActorID,
		ActorRole:  string(ev.ActorRole),
		OccurredAt: ev.OccurredAt.UTC(),
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return fmt.Errorf("publish %s: publisher closed", ev.Type)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	ch := p.ch
	p.ch = nil
	p.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
