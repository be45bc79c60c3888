package sweeper

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/logger"
)

type countingExpirer struct {
	calls atomic.Int32
	n     int
	err   error
	block chan struct{}
	ran   chan struct{}
	once  sync.Once
}

func (c *countingExpirer) run(ctx context.Context) (int, error) {
	c.calls.Add(1)
	if c.ran != nil {
		c.once.Do(func() { close(c.ran) })
	}
	if c.block != nil {
		<-c.block
	}
	return c.n, c.err
}

func (c *countingExpirer) ExpireBookings(ctx context.Context) (int, error)   { return c.run(ctx) }
func (c *countingExpirer) ExpireOldTickets(ctx context.Context) (int, error) { return c.run(ctx) }

func TestRunOnce(t *testing.T) {
	var buf bytes.Buffer
	bookings := &countingExpirer{n: 3}
	tickets := &countingExpirer{err: errors.New("db down")}
	s := New(config.SweeperConfig{BookingInterval: time.Hour, TicketInterval: time.Hour}, bookings, tickets, logger.NewConsoleLogger(&buf))

	counts, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobExpireTickets)
	assert.Equal(t, 3, counts[JobExpireBookings])
	assert.Equal(t, int32(1), bookings.calls.Load())
	assert.Equal(t, int32(1), tickets.calls.Load())
	assert.Contains(t, buf.String(), "[expire-bookings] 3 records transitioned")
}

func TestZeroResultsAreSilent(t *testing.T) {
	var buf bytes.Buffer
	idle := &countingExpirer{}
	s := New(config.SweeperConfig{BookingInterval: time.Hour, TicketInterval: time.Hour}, idle, idle, logger.NewConsoleLogger(&buf))

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "records transitioned")
}

func TestTickersRunIndependently(t *testing.T) {
	bookings := &countingExpirer{n: 1}
	tickets := &countingExpirer{}
	s := New(config.SweeperConfig{BookingInterval: 5 * time.Millisecond, TicketInterval: time.Hour},
		bookings, tickets, logger.NewConsoleLogger(&bytes.Buffer{}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return bookings.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Zero(t, tickets.calls.Load())
	after := bookings.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, bookings.calls.Load(), "no sweeps after Stop")
}

func TestRunOnStart(t *testing.T) {
	bookings := &countingExpirer{}
	tickets := &countingExpirer{}
	s := New(config.SweeperConfig{BookingInterval: time.Hour, TicketInterval: time.Hour, RunOnStart: true},
		bookings, tickets, logger.NewConsoleLogger(&bytes.Buffer{}))

	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return bookings.calls.Load() == 1 && tickets.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestStopWaitsForInFlightSweep(t *testing.T) {
	bookings := &countingExpirer{block: make(chan struct{}), ran: make(chan struct{})}
	tickets := &countingExpirer{}
	s := New(config.SweeperConfig{BookingInterval: 5 * time.Millisecond, TicketInterval: time.Hour},
		bookings, tickets, logger.NewConsoleLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	<-bookings.ran
	cancel()

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a sweep was running")
	case <-time.After(30 * time.Millisecond):
	}

	close(bookings.block)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sweep finished")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := New(config.SweeperConfig{}, &countingExpirer{}, &countingExpirer{}, nil)
	assert.NotPanics(t, s.Stop)
}
