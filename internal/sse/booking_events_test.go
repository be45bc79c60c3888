package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

func bookingPayload(t *testing.T, showtimeID, movieID string) []byte {
	t.Helper()
	b, err := json.Marshal(models.BookingEvent{
		BookingReference: "BKG-1",
		ShowtimeID:       showtimeID,
		MovieID:          movieID,
		Status:           models.BookingConfirmed,
	})
	require.NoError(t, err)
	return b
}

func TestHubRoutesByShowtimeAndMovie(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	byShowtime := hub.SubscribeToShowtime(ctx, "s-1")
	byMovie := hub.SubscribeToMovie(ctx, "m-1")
	other := hub.SubscribeToShowtime(ctx, "s-2")

	require.NoError(t, hub.Publish(ctx, models.TopicBookingConfirmed, "b-1", bookingPayload(t, "s-1", "m-1")))

	u := <-byShowtime
	assert.Equal(t, models.TopicBookingConfirmed, u.Topic)
	assert.Equal(t, "BKG-1", u.Event.BookingReference)
	u = <-byMovie
	assert.Equal(t, "m-1", u.Event.MovieID)

	select {
	case <-other:
		t.Fatal("showtime s-2 should not receive s-1 updates")
	default:
	}
}

func TestHubRemovesClientOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.SubscribeToShowtime(ctx, "s-1")
	assert.Equal(t, 1, hub.ShowtimeClientCount("s-1"))

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.ShowtimeClientCount("s-1"))

	// emitting after removal must not panic
	assert.NotPanics(t, func() {
		hub.Emit(Update{Event: models.BookingEvent{ShowtimeID: "s-1"}})
	})
}

func TestHubRejectsMalformedPayload(t *testing.T) {
	assert.Error(t, NewHub().Publish(context.Background(), "t", "k", []byte("not json")))
}

func TestStreamShowtime(t *testing.T) {
	hub := NewHub()
	h := NewHandler(hub, logger.NewConsoleLogger(io.Discard))
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stream/showtimes/s-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return hub.ShowtimeClientCount("s-1") == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), models.TopicBookingCreated, "b-1", bookingPayload(t, "s-1", "m-1")))

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: "+models.TopicBookingCreated) {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"booking_reference":"BKG-1"`)
}
