package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-moviebooking/internal/logger"
)

type Handler struct {
	Hub    *Hub
	Logger *logger.Logger
}

func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{Hub: hub, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stream", func(r chi.Router) {
		r.Get("/showtimes/{showtimeId}", h.StreamShowtime)
		r.Get("/movies/{movieId}", h.StreamMovie)
	})
}

// StreamShowtime pushes every booking change for one showtime until the client
// disconnects.
func (h *Handler) StreamShowtime(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "showtimeId")
	h.stream(w, r, "showtime", id, h.Hub.SubscribeToShowtime(r.Context(), id))
}

func (h *Handler) StreamMovie(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "movieId")
	h.stream(w, r, "movie", id, h.Hub.SubscribeToMovie(r.Context(), id))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, kind, id string, updates <-chan Update) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	setupSSEHeaders(w)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"%s_id\":%q}\n\n", kind, id)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to %s stream %s", kind, id))

	ctx := r.Context()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(u.Event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize booking event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Topic, data)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from %s stream %s", kind, id))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
