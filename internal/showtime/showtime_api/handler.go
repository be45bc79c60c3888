package showtime_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	showtime "ms-moviebooking/internal/showtime/service"
	"ms-moviebooking/internal/utils"
)

type Handler struct {
	ShowtimeService *showtime.ShowtimeService
	Logger          *logger.Logger
}

func NewHandler(svc *showtime.ShowtimeService, log *logger.Logger) *Handler {
	return &Handler{ShowtimeService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/showtimes", func(r chi.Router) {
		r.Post("/", h.CreateShowtime)
		r.Get("/", h.ListShowtimes)
		r.Get("/movies/{movieId}/count", h.CountActiveByMovie)
		r.Get("/theaters/{theaterId}/count", h.CountActiveByTheater)
		r.Get("/{showtimeId}", h.GetShowtime)
		r.Put("/{showtimeId}", h.UpdateShowtime)
		r.Post("/{showtimeId}/reserve", h.ReserveSeats)
		r.Post("/{showtimeId}/release", h.ReleaseSeats)
		r.Post("/{showtimeId}/cancel", h.CancelShowtime)
		r.Post("/{showtimeId}/complete", h.CompleteShowtime)
		r.Post("/{showtimeId}/housefull", h.MarkHousefull)
	})
}

type seatCountRequest struct {
	Seats int `json:"seats"`
}

func (h *Handler) CreateShowtime(w http.ResponseWriter, r *http.Request) {
	var req models.CreateShowtimeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid showtime", err)
		return
	}
	st, err := h.ShowtimeService.CreateShowtime(r.Context(), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateShowtime: %v", err))
		utils.WriteError(w, "Could not create showtime", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Showtime created", st)
}

func (h *Handler) UpdateShowtime(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateShowtimeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid showtime", err)
		return
	}
	st, err := h.ShowtimeService.UpdateShowtime(r.Context(), chi.URLParam(r, "showtimeId"), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("UpdateShowtime: %v", err))
		utils.WriteError(w, "Could not update showtime", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Showtime updated", st)
}

func (h *Handler) GetShowtime(w http.ResponseWriter, r *http.Request) {
	st, err := h.ShowtimeService.GetShowtime(r.Context(), chi.URLParam(r, "showtimeId"))
	if err != nil {
		utils.WriteError(w, "Showtime not available", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Showtime found", st)
}

func (h *Handler) ListShowtimes(w http.ResponseWriter, r *http.Request) {
	f, err := showtimeFilter(r)
	if err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	list, err := h.ShowtimeService.ListShowtimes(r.Context(), f)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListShowtimes: %v", err))
		utils.WriteError(w, "Could not list showtimes", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d showtimes", len(list)), list)
}

func showtimeFilter(r *http.Request) (models.ShowtimeFilter, error) {
	q := r.URL.Query()
	f := models.ShowtimeFilter{
		MovieID:   q.Get("movie_id"),
		TheaterID: q.Get("theater_id"),
		ShowType:  models.ShowType(q.Get("show_type")),
		Status:    models.ShowtimeStatus(q.Get("status")),
	}
	var err error
	if f.ScreenNumber, err = utils.QueryInt(r, "screen", 0); err != nil {
		return f, err
	}
	if f.MinAvailable, err = utils.QueryInt(r, "min_available", 0); err != nil {
		return f, err
	}
	if f.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = utils.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}
	if f.From, err = utils.QueryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = utils.QueryTime(r, "to"); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) CountActiveByMovie(w http.ResponseWriter, r *http.Request) {
	n, err := h.ShowtimeService.CountActiveByMovie(r.Context(), chi.URLParam(r, "movieId"))
	if err != nil {
		utils.WriteError(w, "Could not count showtimes", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active showtimes", map[string]int{"count": n})
}

func (h *Handler) CountActiveByTheater(w http.ResponseWriter, r *http.Request) {
	n, err := h.ShowtimeService.CountActiveByTheater(r.Context(), chi.URLParam(r, "theaterId"))
	if err != nil {
		utils.WriteError(w, "Could not count showtimes", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active showtimes", map[string]int{"count": n})
}

func (h *Handler) ReserveSeats(w http.ResponseWriter, r *http.Request) {
	h.adjustSeats(w, r, h.ShowtimeService.ReserveSeats, "reserved")
}

func (h *Handler) ReleaseSeats(w http.ResponseWriter, r *http.Request) {
	h.adjustSeats(w, r, h.ShowtimeService.ReleaseSeats, "released")
}

func (h *Handler) adjustSeats(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int) error, verb string) {
	id := chi.URLParam(r, "showtimeId")
	var req seatCountRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid seat count", err)
		return
	}
	if err := op(r.Context(), id, req.Seats); err != nil {
		utils.WriteError(w, "Seats not "+verb, err)
		return
	}
	st, err := h.ShowtimeService.GetShowtime(r.Context(), id)
	if err != nil {
		utils.WriteError(w, "Showtime not available", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d seats %s", req.Seats, verb), st)
}

func (h *Handler) CancelShowtime(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ShowtimeService.CancelShowtime)
}

func (h *Handler) CompleteShowtime(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ShowtimeService.CompleteShowtime)
}

func (h *Handler) MarkHousefull(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ShowtimeService.MarkHousefull)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*models.Showtime, error)) {
	st, err := op(r.Context(), chi.URLParam(r, "showtimeId"))
	if err != nil {
		utils.WriteError(w, "Status not changed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Showtime "+string(st.Status), st)
}
