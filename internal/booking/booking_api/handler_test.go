package booking_api

import (
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

	bookingdb "ms-moviebooking/internal/booking/db"
	booking "ms-moviebooking/internal/booking/service"
	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/events"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/reservation"
	sagadb "ms-moviebooking/internal/reservation/db"
	showtimedb "ms-moviebooking/internal/showtime/db"
	showtime "ms-moviebooking/internal/showtime/service"
	"ms-moviebooking/internal/testutil"
	ticketdb "ms-moviebooking/internal/tickets/db"
	qr "ms-moviebooking/internal/tickets/qr_genrator"
	tickets "ms-moviebooking/internal/tickets/service"
)

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (http.Handler, *models.Showtime, *clock.Manual) {
	db := testutil.NewDB(t)
	clk := clock.NewManual(now)
	log := logger.NewConsoleLogger(io.Discard)

	bookings := booking.NewBookingService(&bookingdb.DB{Bun: db}, clk, log)
	orch := &reservation.Orchestrator{
		Showtimes: showtime.NewShowtimeService(&showtimedb.DB{Bun: db}, clk, log),
		Bookings:  bookings,
		Tickets:   tickets.NewTicketService(&ticketdb.DB{Bun: db}, qr.NewQRGenerator("k"), clk, log),
		Steps:     &sagadb.DB{Bun: db},
		Events:    events.NewEmitter(events.Noop{}, log),
		Clock:     clk,
		Logger:    log,
	}
	r := chi.NewRouter()
	r.Route("/api", NewHandler(orch, bookings, log).RegisterRoutes)
	return r, testutil.InsertShowtime(t, db, now.Add(5*time.Hour), 4), clk
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestBookingFlowOverHTTP(t *testing.T) {
	h, show, clk := setupRouter(t)

	status, env := do(t, h, http.MethodPost, "/api/bookings", `{
		"showtime_id":"`+show.ID+`",
		"customer_name":"Ana","customer_email":"ana@example.com",
		"seat_labels":["A1","A2"]
	}`)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var res reservation.Reservation
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 531.0, res.Booking.FinalAmount)
	assert.Len(t, res.Tickets, 2)
	ref := res.Booking.BookingReference

	status, env = do(t, h, http.MethodPost, "/api/bookings", `{
		"showtime_id":"`+show.ID+`",
		"customer_name":"Ben","customer_email":"ben@example.com",
		"seat_labels":["A2"]
	}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "seat_already_booked", env.Code)

	status, env = do(t, h, http.MethodPost, "/api/bookings/"+ref+"/confirm", `{"payment_id":"pay-1"}`)
	require.Equal(t, http.StatusOK, status)
	var b models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, models.BookingConfirmed, b.Status)

	status, env = do(t, h, http.MethodPost, "/api/bookings/"+ref+"/confirm", `{"payment_id":"pay-2"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", env.Code)

	status, env = do(t, h, http.MethodGet, "/api/bookings/stats?showtime_id="+show.ID, "")
	require.Equal(t, http.StatusOK, status)
	var stats models.BookingStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.ConfirmedBookings)
	assert.Equal(t, 2, stats.SeatsBooked)

	clk.Advance(4 * time.Hour)
	status, env = do(t, h, http.MethodPost, "/api/bookings/"+ref+"/cancel", `{"reason":"sick"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "cancellation_policy_violation", env.Code)

	status, env = do(t, h, http.MethodGet, "/api/bookings/"+ref+"/saga", "")
	require.Equal(t, http.StatusOK, status)
	var steps []models.SagaStep
	require.NoError(t, json.Unmarshal(env.Data, &steps))
	assert.NotEmpty(t, steps)

	status, _ = do(t, h, http.MethodGet, "/api/bookings/BKG-missing", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPlaceBookingRejectsBadInput(t *testing.T) {
	h, show, _ := setupRouter(t)

	status, env := do(t, h, http.MethodPost, "/api/bookings", `{"showtime_id":"`+show.ID+`","customer_name":"Ana","customer_email":"nope","seat_labels":["A1"]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Code)

	status, _ = do(t, h, http.MethodPost, "/api/bookings", `{"showtime_id":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, h, http.MethodPost, "/api/bookings", `{"showtime_id":"`+show.ID+`","customer_name":"Ana","customer_email":"ana@example.com","seat_labels":["A1","B1","C1","D1","E1"]}`)
	assert.Equal(t, http.StatusConflict, status)
}
