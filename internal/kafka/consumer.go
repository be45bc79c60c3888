package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

// PaymentHandler applies one payment outcome. topic is TopicPaymentSucceeded
// or TopicPaymentFailed.
type PaymentHandler func(ctx context.Context, topic string, evt models.PaymentEvent) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryMax  = 30 * time.Second
)

type Consumer struct {
	reader messageReader
	log    *logger.Logger

	retryBase time.Duration
	retryMax  time.Duration
}

// NewConsumer subscribes groupID to the payment outcome topics.
func NewConsumer(brokers []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: []string{models.TopicPaymentSucceeded, models.TopicPaymentFailed},
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return newConsumer(reader, log)
}

func newConsumer(reader messageReader, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, log: log, retryBase: defaultRetryBase, retryMax: defaultRetryMax}
}

// Start consumes until ctx is cancelled. A message is committed once handled,
// or when it cannot be decoded. A handler error retries the same message with
// backoff, so a later commit never skips past it.
func (c *Consumer) Start(ctx context.Context, handler PaymentHandler) error {
	c.log.Info("KAFKA", "payment consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("error reading message: %v", err))
			if !c.sleep(ctx, c.retryBase) {
				return nil
			}
			continue
		}

		evt, err := DecodePaymentEvent(msg.Value)
		if err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("dropping malformed message on %s at offset %d: %v", msg.Topic, msg.Offset, err))
			c.commit(ctx, msg)
			continue
		}

		c.log.LogKafka("RECEIVED", msg.Topic, evt.Booking)
		if !c.apply(ctx, handler, msg, evt) {
			return nil
		}
		c.commit(ctx, msg)
	}
}

// apply runs handler until it succeeds. It returns false if ctx ends first.
func (c *Consumer) apply(ctx context.Context, handler PaymentHandler, msg kafka.Message, evt models.PaymentEvent) bool {
	wait := c.retryBase
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Topic, evt)
		if err == nil {
			return true
		}
		c.log.Error("KAFKA", fmt.Sprintf("failed to apply %s for %s (attempt %d, retrying in %s): %v", msg.Topic, evt.Booking, attempt, wait, err))
		if !c.sleep(ctx, wait) {
			return false
		}
		wait *= 2
		if wait > c.retryMax {
			wait = c.retryMax
		}
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.log.Error("KAFKA", fmt.Sprintf("failed to commit offset %d on %s: %v", msg.Offset, msg.Topic, err))
	}
}

// DecodePaymentEvent parses a payment message and checks the booking is named.
func DecodePaymentEvent(value []byte) (models.PaymentEvent, error) {
	var evt models.PaymentEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return evt, err
	}
	if evt.Booking == "" {
		return evt, models.Invalid("payment event without booking")
	}
	return evt, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
