package booking_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	booking "ms-moviebooking/internal/booking/service"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/reservation"
	"ms-moviebooking/internal/utils"
)

type Handler struct {
	Reservations   *reservation.Orchestrator
	BookingService *booking.BookingService
	Logger         *logger.Logger
}

func NewHandler(orch *reservation.Orchestrator, svc *booking.BookingService, log *logger.Logger) *Handler {
	return &Handler{Reservations: orch, BookingService: svc, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.PlaceBooking)
		r.Get("/", h.ListBookings)
		r.Get("/stats", h.Stats)
		r.Get("/{bookingRef}", h.GetBooking)
		r.Put("/{bookingRef}/customer", h.UpdateCustomer)
		r.Post("/{bookingRef}/confirm", h.ConfirmBooking)
		r.Post("/{bookingRef}/cancel", h.CancelBooking)
		r.Post("/{bookingRef}/refund", h.RefundBooking)
		r.Get("/{bookingRef}/saga", h.SagaSteps)
	})
}

// PlaceBooking reserves seats and issues tickets in one call.
// Expected body: {"showtime_id":"...","customer_name":"...","customer_email":"...","seat_labels":["A1"]}
func (h *Handler) PlaceBooking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid booking request", err)
		return
	}
	res, err := h.Reservations.PlaceBooking(r.Context(), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("PlaceBooking: showtime=%s seats=%v: %v", req.ShowtimeID, req.SeatLabels, err))
		utils.WriteError(w, "Booking failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Booking created, awaiting payment", res)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.BookingService.GetBooking(r.Context(), chi.URLParam(r, "bookingRef"))
	if err != nil {
		utils.WriteError(w, "Booking not available", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking found", b)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	f, err := bookingFilter(r)
	if err != nil {
		utils.WriteError(w, "Invalid filter", err)
		return
	}
	list, err := h.BookingService.ListBookings(r.Context(), f)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListBookings: %v", err))
		utils.WriteError(w, "Could not list bookings", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d bookings", len(list)), list)
}

func bookingFilter(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	f := models.BookingFilter{
		CustomerEmail: q.Get("customer_email"),
		CustomerPhone: q.Get("customer_phone"),
		MovieID:       q.Get("movie_id"),
		TheaterID:     q.Get("theater_id"),
		ShowtimeID:    q.Get("showtime_id"),
		Status:        models.BookingStatus(q.Get("status")),
		PaymentStatus: models.PaymentStatus(q.Get("payment_status")),
	}
	var err error
	if f.BookedFrom, err = utils.QueryTime(r, "booked_from"); err != nil {
		return f, err
	}
	if f.BookedTo, err = utils.QueryTime(r, "booked_to"); err != nil {
		return f, err
	}
	if f.ShowFrom, err = utils.QueryTime(r, "show_from"); err != nil {
		return f, err
	}
	if f.ShowTo, err = utils.QueryTime(r, "show_to"); err != nil {
		return f, err
	}
	if f.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = utils.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.BookingService.Stats(r.Context(), models.StatsScope{
		ShowtimeID: q.Get("showtime_id"),
		MovieID:    q.Get("movie_id"),
		TheaterID:  q.Get("theater_id"),
	})
	if err != nil {
		utils.WriteError(w, "Could not compute statistics", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking statistics", stats)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCustomerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid customer details", err)
		return
	}
	b, err := h.BookingService.UpdateCustomerDetails(r.Context(), chi.URLParam(r, "bookingRef"), req)
	if err != nil {
		utils.WriteError(w, "Customer details not updated", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Customer details updated", b)
}

// ConfirmBooking is the manual counterpart of the payment consumer.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"payment_id"`
	}
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, "Invalid confirmation", err)
		return
	}
	b, err := h.Reservations.ConfirmBooking(r.Context(), chi.URLParam(r, "bookingRef"), req.PaymentID)
	if err != nil {
		utils.WriteError(w, "Booking not confirmed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking confirmed", b)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.WriteError(w, "Invalid cancellation", err)
			return
		}
	}
	b, err := h.Reservations.CancelBooking(r.Context(), chi.URLParam(r, "bookingRef"), req.Reason)
	if err != nil {
		utils.WriteError(w, "Booking not cancelled", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking cancelled", b)
}

func (h *Handler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Reservations.RefundBooking(r.Context(), chi.URLParam(r, "bookingRef"))
	if err != nil {
		utils.WriteError(w, "Booking not refunded", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Booking refunded", b)
}

func (h *Handler) SagaSteps(w http.ResponseWriter, r *http.Request) {
	b, err := h.BookingService.GetBooking(r.Context(), chi.URLParam(r, "bookingRef"))
	if err != nil {
		utils.WriteError(w, "Booking not available", err)
		return
	}
	steps, err := h.Reservations.SagaSteps(r.Context(), b.ID)
	if err != nil {
		utils.WriteError(w, "Could not load reservation steps", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, fmt.Sprintf("%d steps", len(steps)), steps)
}
