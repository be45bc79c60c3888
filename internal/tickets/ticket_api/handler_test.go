package ticket_api

import (
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

	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/testutil"
	ticketdb "ms-moviebooking/internal/tickets/db"
	qr "ms-moviebooking/internal/tickets/qr_genrator"
	tickets "ms-moviebooking/internal/tickets/service"
)

var now = time.Date(2026, 9, 5, 17, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (http.Handler, *tickets.TicketService) {
	log := logger.NewConsoleLogger(io.Discard)
	svc := tickets.NewTicketService(&ticketdb.DB{Bun: testutil.NewDB(t)}, qr.NewQRGenerator("scanner-secret"), clock.NewManual(now), log)
	r := chi.NewRouter()
	NewHandler(svc, log).RegisterRoutes(r)
	return r, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func issue(t *testing.T, svc *tickets.TicketService, seat string) *models.Ticket {
	ticket, err := svc.CreateTicket(context.Background(), models.TicketRequest{
		BookingID:     "booking-1",
		ShowtimeID:    "show-1",
		MovieID:       "movie-1",
		TheaterID:     "theater-1",
		SeatLabel:     seat,
		Price:         180,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		ShowDateTime:  now.Add(time.Hour),
	})
	require.NoError(t, err)
	return ticket
}

func TestCheckinWithQRToken(t *testing.T) {
	h, svc := setup(t)
	ticket := issue(t, svc, "F7")

	status, env := do(t, h, http.MethodPost, "/tickets/validate-token", `{"qr_token":"`+ticket.QRCode+`"}`)
	require.Equal(t, http.StatusOK, status)
	var v models.TicketValidation
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.True(t, v.Valid)
	assert.Equal(t, ticket.TicketNumber, v.TicketNumber)

	status, env = do(t, h, http.MethodPost, "/tickets/checkin", `{"qr_token":"`+ticket.QRCode+`"}`)
	require.Equal(t, http.StatusOK, status)
	var used models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &used))
	assert.Equal(t, models.TicketUsed, used.Status)

	status, env = do(t, h, http.MethodPost, "/tickets/checkin", `{"qr_token":"`+ticket.QRCode+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Code)

	status, _ = do(t, h, http.MethodPost, "/tickets/checkin", `{"qr_token":"QR-forged"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTicketRoutes(t *testing.T) {
	h, svc := setup(t)
	a := issue(t, svc, "A1")
	issue(t, svc, "A2")

	status, env := do(t, h, http.MethodGet, "/tickets?booking_id=booking-1", "")
	require.Equal(t, http.StatusOK, status)
	var list []models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	status, _ = do(t, h, http.MethodGet, "/tickets/"+a.TicketNumber, "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, h, http.MethodGet, "/tickets/showtimes/show-1/count", "")
	require.Equal(t, http.StatusOK, status)
	var count TicketCountResponse
	require.NoError(t, json.Unmarshal(env.Data, &count))
	assert.Equal(t, 2, count.ActiveCount)

	status, _ = do(t, h, http.MethodPost, "/tickets/"+a.ID+"/cancel", "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, h, http.MethodGet, "/tickets/movies/movie-1/revenue", "")
	require.Equal(t, http.StatusOK, status)
	var revenue MovieRevenueResponse
	require.NoError(t, json.Unmarshal(env.Data, &revenue))
	assert.Equal(t, 180.0, revenue.Revenue)

	status, env = do(t, h, http.MethodPost, "/tickets/"+a.ID+"/use", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, h, http.MethodPost, "/tickets/"+a.ID+"/refund", "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, h, http.MethodGet, "/tickets/"+a.ID+"/validate", "")
	require.Equal(t, http.StatusOK, status)
	var v models.TicketValidation
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.False(t, v.Valid)
	assert.Equal(t, "ticket is REFUNDED", v.Reason)

	status, env = do(t, h, http.MethodGet, "/tickets/TKT-none", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Code)
}

func TestTheaterReportsAndFilters(t *testing.T) {
	h, svc := setup(t)
	issue(t, svc, "A1")
	b := issue(t, svc, "A2")

	status, _ := do(t, h, http.MethodPost, "/tickets/"+b.ID+"/use", "")
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, h, http.MethodGet, "/tickets/theaters/theater-1/count", "")
	require.Equal(t, http.StatusOK, status)
	var theaterCount TheaterTicketCountResponse
	require.NoError(t, json.Unmarshal(env.Data, &theaterCount))
	assert.Equal(t, 1, theaterCount.ActiveCount)

	status, env = do(t, h, http.MethodGet, "/tickets/theaters/theater-1/revenue", "")
	require.Equal(t, http.StatusOK, status)
	var revenue TheaterRevenueResponse
	require.NoError(t, json.Unmarshal(env.Data, &revenue))
	assert.Equal(t, 360.0, revenue.Revenue)

	status, env = do(t, h, http.MethodGet, "/tickets/movies/movie-1/count", "")
	require.Equal(t, http.StatusOK, status)
	var movieCount MovieTicketCountResponse
	require.NoError(t, json.Unmarshal(env.Data, &movieCount))
	assert.Equal(t, "movie-1", movieCount.MovieID)
	assert.Equal(t, 1, movieCount.ActiveCount)

	status, env = do(t, h, http.MethodGet, "/tickets?theater_id=theater-1&seat_type=REGULAR&show_from=2026-09-05T17:00:00Z&show_to=2026-09-05T19:00:00Z", "")
	require.Equal(t, http.StatusOK, status)
	var list []models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	status, env = do(t, h, http.MethodGet, "/tickets?show_from=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Code)
}
