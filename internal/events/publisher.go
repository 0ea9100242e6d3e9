package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys published on the topic exchange.
const (
	RKReservationCreated   = "reservation.created"
	RKReservationCancelled = "reservation.cancelled"
	RKSessionCheckedIn     = "session.checked_in"
	RKSessionCheckedOut    = "session.checked_out"
)

// ReservationEvent describes a created or cancelled reservation.
type ReservationEvent struct {
	ReservationID string `json:"reservation_id"`
	ChairID       int64  `json:"chair_id"`
	UserID        string `json:"user_id"`
	Start         int64  `json:"start"` // unix seconds
	End           int64  `json:"end"`
	PartySize     int    `json:"people,omitempty"`
}

// SessionEvent describes a check-in or a billed check-out.
type SessionEvent struct {
	ChairID int64  `json:"chair_id"`
	UserID  string `json:"user_id"`
	At      int64  `json:"at"`
	Minutes int64  `json:"minutes,omitempty"`
	Fee     int64  `json:"fee,omitempty"`
}

// Publisher sends JSON events to a durable topic exchange.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
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

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
