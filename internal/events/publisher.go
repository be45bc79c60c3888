// Package events fans booking lifecycle changes out to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

// Publisher is implemented by the Kafka producer and the RabbitMQ publisher.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
	Close() error
}

// Noop drops every message. Used when EVENTS_BROKER=none.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, []byte) error { return nil }
func (Noop) Close() error                                          { return nil }

// Fanout publishes every message to each of its publishers. All are tried
// even when one fails.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, topic, key string, value []byte) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, topic, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emitter serialises booking events and publishes them. Publish failures are
// logged and never fail the booking operation that produced them.
type Emitter struct {
	Publisher Publisher
	Logger    *logger.Logger
}

func NewEmitter(p Publisher, log *logger.Logger) *Emitter {
	if p == nil {
		p = Noop{}
	}
	return &Emitter{Publisher: p, Logger: log}
}

func (e *Emitter) BookingEvent(ctx context.Context, topic string, b *models.Booking, at time.Time) {
	if e == nil {
		return
	}
	payload, err := json.Marshal(models.NewBookingEvent(b, at))
	if err != nil {
		e.Logger.Error("EVENTS", fmt.Sprintf("failed to encode %s for %s: %v", topic, b.BookingReference, err))
		return
	}
	if err := e.Publisher.Publish(ctx, topic, b.ID, payload); err != nil {
		e.Logger.Error("EVENTS", fmt.Sprintf("failed to publish %s for %s: %v", topic, b.BookingReference, err))
		return
	}
	e.Logger.LogKafka("PUBLISHED", topic, b.BookingReference)
}

// Message is one published record, kept by Memory.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Memory keeps published messages in process. Tests and local runs use it.
type Memory struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (m *Memory) Publish(_ context.Context, topic, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, Message{Topic: topic, Key: key, Value: append([]byte(nil), value...)})
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Topics returns the topic of every published message in order.
func (m *Memory) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.Topic)
	}
	return out
}
