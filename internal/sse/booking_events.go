// Package sse streams booking lifecycle changes to browsers watching a
// showtime or a movie.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ms-moviebooking/internal/models"
)

// Update is one booking change delivered to a subscriber.
type Update struct {
	Topic string              `json:"topic"`
	Event models.BookingEvent `json:"event"`
}

// Hub keeps subscriber channels per showtime and per movie. It implements
// events.Publisher so it can sit next to the broker publisher.
type Hub struct {
	// key: showtimeID
	showtimeClients map[string][]chan Update
	// key: movieID
	movieClients map[string][]chan Update
	mu           sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		showtimeClients: make(map[string][]chan Update),
		movieClients:    make(map[string][]chan Update),
	}
}

// SubscribeToShowtime registers a client until ctx is done. The returned
// channel is closed on unsubscribe.
func (h *Hub) SubscribeToShowtime(ctx context.Context, showtimeID string) <-chan Update {
	return h.subscribe(ctx, h.showtimeClients, showtimeID)
}

func (h *Hub) SubscribeToMovie(ctx context.Context, movieID string) <-chan Update {
	return h.subscribe(ctx, h.movieClients, movieID)
}

func (h *Hub) subscribe(ctx context.Context, clients map[string][]chan Update, key string) <-chan Update {
	ch := make(chan Update, 10)

	h.mu.Lock()
	clients[key] = append(clients[key], ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.remove(clients, key, ch)
	}()
	return ch
}

func (h *Hub) remove(clients map[string][]chan Update, key string, ch chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := clients[key]
	for i, c := range list {
		if c == ch {
			clients[key] = append(list[:i], list[i+1:]...)
			close(ch)
			break
		}
	}
	if len(clients[key]) == 0 {
		delete(clients, key)
	}
}

// Emit broadcasts u to the showtime's and the movie's subscribers. Slow
// clients with a full buffer miss the update.
func (h *Hub) Emit(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.showtimeClients[u.Event.ShowtimeID] {
		select {
		case ch <- u:
		default:
		}
	}
	for _, ch := range h.movieClients[u.Event.MovieID] {
		select {
		case ch <- u:
		default:
		}
	}
}

// Publish decodes a booking event payload and emits it.
func (h *Hub) Publish(_ context.Context, topic, _ string, value []byte) error {
	var evt models.BookingEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("decode booking event for %s: %w", topic, err)
	}
	h.Emit(Update{Topic: topic, Event: evt})
	return nil
}

func (h *Hub) Close() error { return nil }

func (h *Hub) ShowtimeClientCount(showtimeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.showtimeClients[showtimeID])
}

func (h *Hub) MovieClientCount(movieID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.movieClients[movieID])
}
