package ticket_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-moviebooking/internal/utils"
)

// TicketCountResponse is the response format for the GetActiveTicketCount endpoint
type TicketCountResponse struct {
	ShowtimeID  string `json:"showtime_id"`
	ActiveCount int    `json:"active_count"`
}

type MovieRevenueResponse struct {
	MovieID string  `json:"movie_id"`
	Revenue float64 `json:"revenue"`
}

type MovieTicketCountResponse struct {
	MovieID     string `json:"movie_id"`
	ActiveCount int    `json:"active_count"`
}

type TheaterTicketCountResponse struct {
	TheaterID   string `json:"theater_id"`
	ActiveCount int    `json:"active_count"`
}

type TheaterRevenueResponse struct {
	TheaterID string  `json:"theater_id"`
	Revenue   float64 `json:"revenue"`
}

// GetActiveTicketCount reports how many ACTIVE tickets a showtime has.
func (h *Handler) GetActiveTicketCount(w http.ResponseWriter, r *http.Request) {
	showtimeID := chi.URLParam(r, "showtimeId")
	count, err := h.TicketService.CountActiveByShowtime(r.Context(), showtimeID)
	if err != nil {
		utils.WriteError(w, "Error retrieving ticket count", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active tickets", TicketCountResponse{ShowtimeID: showtimeID, ActiveCount: count})
}

// GetMovieRevenue sums the price of active and used tickets for a movie.
func (h *Handler) GetMovieRevenue(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")
	revenue, err := h.TicketService.RevenueByMovie(r.Context(), movieID)
	if err != nil {
		utils.WriteError(w, "Error retrieving revenue", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket revenue", MovieRevenueResponse{MovieID: movieID, Revenue: revenue})
}

func (h *Handler) GetMovieTicketCount(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieId")
	count, err := h.TicketService.CountActiveByMovie(r.Context(), movieID)
	if err != nil {
		utils.WriteError(w, "Error retrieving ticket count", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active tickets", MovieTicketCountResponse{MovieID: movieID, ActiveCount: count})
}

func (h *Handler) GetTheaterTicketCount(w http.ResponseWriter, r *http.Request) {
	theaterID := chi.URLParam(r, "theaterId")
	count, err := h.TicketService.CountActiveByTheater(r.Context(), theaterID)
	if err != nil {
		utils.WriteError(w, "Error retrieving ticket count", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Active tickets", TheaterTicketCountResponse{TheaterID: theaterID, ActiveCount: count})
}

// GetTheaterRevenue sums the price of active and used tickets across a theater.
func (h *Handler) GetTheaterRevenue(w http.ResponseWriter, r *http.Request) {
	theaterID := chi.URLParam(r, "theaterId")
	revenue, err := h.TicketService.RevenueByTheater(r.Context(), theaterID)
	if err != nil {
		utils.WriteError(w, "Error retrieving revenue", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket revenue", TheaterRevenueResponse{TheaterID: theaterID, Revenue: revenue})
}
