package ticket_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	tickets "ms-moviebooking/internal/tickets/service"
	"ms-moviebooking/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func NewHandler(svc *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/checkin", h.CheckinTicket)
		r.Post("/validate-token", h.ValidateEntryToken)
		r.Get("/showtimes/{showtimeId}/count", h.GetActiveTicketCount)
		r.Get("/movies/{movieId}/revenue", h.GetMovieRevenue)
		r.Get("/movies/{movieId}/count", h.GetMovieTicketCount)
		r.Get("/theaters/{theaterId}/count", h.GetTheaterTicketCount)
		r.Get("/theaters/{theaterId}/revenue", h.GetTheaterRevenue)
		r.Get("/{ticketRef}", h.ViewTicket)
		r.Get("/{ticketRef}/validate", h.ValidateTicket)
		r.Post("/{ticketRef}/use", h.MarkUsed)
		r.Post("/{ticketRef}/cancel", h.CancelTicket)
		r.Post("/{ticketRef}/refund", h.RefundTicket)
	})
}

type entryTokenRequest struct {
	QRToken string `json:"qr_token"`
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.TicketFilter{
		BookingID:     q.Get("booking_id"),
		ShowtimeID:    q.Get("showtime_id"),
		MovieID:       q.Get("movie_id"),
		TheaterID:     q.Get("theater_id"),
		CustomerEmail: q.Get("customer_email"),
		CustomerPhone: q.Get("customer_phone"),
		SeatType:      models.SeatType(q.Get("seat_type")),
		Status:        models.TicketStatus(q.Get("status")),
	}
	var err error
	if f.ShowFrom, err = utils.QueryTime(r, "show_from"); err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	if f.ShowTo, err = utils.QueryTime(r, "show_to"); err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	if f.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	if f.Offset, err = utils.QueryInt(r, "offset", 0); err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	list, err := h.TicketService.ListTickets(r.Context(), f)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTickets: %v", err))
		utils.WriteError(w, "Could not list tickets", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d tickets", len(list)), list)
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.TicketService.GetTicket(r.Context(), chi.URLParam(r, "ticketRef"))
	if err != nil {
		utils.WriteError(w, "Ticket not available", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket found", ticket)
}

func (h *Handler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	v, err := h.TicketService.ValidateTicket(r.Context(), chi.URLParam(r, "ticketRef"))
	if err != nil {
		utils.WriteError(w, "Ticket not available", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket validated", v)
}

// ValidateEntryToken checks a scanned QR token without admitting the holder.
func (h *Handler) ValidateEntryToken(w http.ResponseWriter, r *http.Request) {
	var req entryTokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}
	v, err := h.TicketService.ValidateEntryToken(r.Context(), req.QRToken)
	if err != nil {
		utils.WriteError(w, "Invalid QR code", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Ticket validated", v)
}

// CheckinTicket opens a scanned QR token and marks the ticket USED.
// Expected POST body: {"qr_token": "QR-..."}
func (h *Handler) CheckinTicket(w http.ResponseWriter, r *http.Request) {
	var req entryTokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid request body", err)
		return
	}
	v, err := h.TicketService.ValidateEntryToken(r.Context(), req.QRToken)
	if err != nil {
		utils.WriteError(w, "Invalid QR code", err)
		return
	}
	if !v.Valid {
		utils.WriteError(w, "Entry refused", models.Invalid("ticket %s: %s", v.TicketNumber, v.Reason))
		return
	}
	ticket, err := h.TicketService.MarkUsed(r.Context(), v.TicketNumber)
	if err != nil {
		utils.WriteError(w, "Checkin failed", err)
		return
	}
	h.Logger.LogTicket("CHECKIN", ticket.TicketNumber, "seat "+ticket.SeatLabel)
	utils.WriteSuccess(w, http.StatusOK, "Checkin successful", ticket)
}

func (h *Handler) MarkUsed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.TicketService.MarkUsed, "Ticket used")
}

func (h *Handler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.TicketService.CancelTicket, "Ticket cancelled")
}

func (h *Handler) RefundTicket(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.TicketService.RefundTicket, "Ticket refunded")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*models.Ticket, error), message string) {
	ticket, err := op(r.Context(), chi.URLParam(r, "ticketRef"))
	if err != nil {
		utils.WriteError(w, "Ticket not updated", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, message, ticket)
}
