package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

// fakeReader serves queued messages and cancels the consumer once drained.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, context.Canceled
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.committed))
	for _, m := range r.committed {
		out = append(out, m.Offset)
	}
	return out
}

func newTestConsumer(msgs ...kafka.Message) (*Consumer, *fakeReader, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{queue: msgs, cancel: cancel}
	c := newConsumer(reader, logger.NewConsoleLogger(io.Discard))
	c.retryBase = time.Millisecond
	c.retryMax = 4 * time.Millisecond
	return c, reader, ctx
}

func paymentMessage(offset int64, booking string) kafka.Message {
	return kafka.Message{
		Topic:  models.TopicPaymentSucceeded,
		Offset: offset,
		Value:  []byte(`{"booking":"` + booking + `","payment_id":"pay-` + booking + `"}`),
	}
}

func TestDecodePaymentEvent(t *testing.T) {
	evt, err := DecodePaymentEvent([]byte(`{"booking":"BKG-20260101120000-ABC123","payment_id":"pay-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "BKG-20260101120000-ABC123", evt.Booking)
	assert.Equal(t, "pay-1", evt.PaymentID)

	_, err = DecodePaymentEvent([]byte(`{"payment_id":"pay-1"}`))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = DecodePaymentEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestProducerTargetsBrokers(t *testing.T) {
	p := NewProducer([]string{"k1:9092", "k2:9092"})
	defer p.Close()

	require.NotNil(t, p.Writer.Addr)
	assert.Equal(t, "tcp", p.Writer.Addr.Network())
	assert.Empty(t, p.Writer.Topic, "topic is chosen per message")
}

func TestConsumerRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	c, reader, ctx := newTestConsumer(paymentMessage(1, "BKG-1"), paymentMessage(2, "BKG-2"))

	var seen []string
	failures := 2
	err := c.Start(ctx, func(_ context.Context, topic string, evt models.PaymentEvent) error {
		seen = append(seen, evt.Booking)
		if evt.Booking == "BKG-1" && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"BKG-1", "BKG-1", "BKG-1", "BKG-2"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.offsets())
}

func TestConsumerStopsWithoutCommittingOnCancel(t *testing.T) {
	c, reader, ctx := newTestConsumer(paymentMessage(7, "BKG-7"), paymentMessage(8, "BKG-8"))

	calls := 0
	err := c.Start(ctx, func(_ context.Context, topic string, evt models.PaymentEvent) error {
		calls++
		if calls == 3 {
			reader.cancel()
		}
		return errors.New("still failing")
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Empty(t, reader.offsets(), "a message that never applied is not committed")
}

func TestConsumerCommitsMalformedMessages(t *testing.T) {
	bad := kafka.Message{Topic: models.TopicPaymentFailed, Offset: 3, Value: []byte(`{`)}
	c, reader, ctx := newTestConsumer(bad, paymentMessage(4, "BKG-4"))

	var seen []string
	require.NoError(t, c.Start(ctx, func(_ context.Context, topic string, evt models.PaymentEvent) error {
		seen = append(seen, evt.Booking)
		return nil
	}))

	assert.Equal(t, []string{"BKG-4"}, seen)
	assert.Equal(t, []int64{3, 4}, reader.offsets())
}
