package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingCompute(t *testing.T) {
	p := Pricing{TaxRate: 0.18, ConvenienceFee: 50}

	a := p.Compute(2, 200)
	assert.Equal(t, 450.0, a.Total)
	assert.Equal(t, 81.0, a.Tax)
	assert.Equal(t, 531.0, a.Final)

	a = p.Compute(3, 133.33)
	assert.Equal(t, 449.99, a.Total)
	assert.Equal(t, 81.0, a.Tax)
	assert.Equal(t, 530.99, a.Final)
}

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, BookingPending.CanTransitionTo(BookingConfirmed))
	assert.True(t, BookingPending.CanTransitionTo(BookingExpired))
	assert.True(t, BookingConfirmed.CanTransitionTo(BookingCancelled))
	assert.False(t, BookingConfirmed.CanTransitionTo(BookingExpired))
	assert.False(t, BookingExpired.CanTransitionTo(BookingConfirmed))
	assert.False(t, BookingCancelled.CanTransitionTo(BookingConfirmed))
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransitionTo(PaymentCompleted))
	assert.True(t, PaymentPending.CanTransitionTo(PaymentFailed))
	assert.True(t, PaymentCompleted.CanTransitionTo(PaymentRefunded))
	assert.True(t, PaymentPartialRefund.CanTransitionTo(PaymentRefunded))
	assert.True(t, PaymentFailed.CanTransitionTo(PaymentCompleted))
	assert.False(t, PaymentFailed.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentPending.CanTransitionTo(PaymentRefunded))
	assert.False(t, PaymentRefunded.CanTransitionTo(PaymentRefunded))
}

func TestTicketStatusTransitions(t *testing.T) {
	assert.True(t, TicketActive.CanTransitionTo(TicketUsed))
	assert.True(t, TicketActive.CanTransitionTo(TicketExpired))
	assert.True(t, TicketUsed.CanTransitionTo(TicketRefunded))
	assert.False(t, TicketUsed.CanTransitionTo(TicketCancelled))
	assert.False(t, TicketRefunded.CanTransitionTo(TicketRefunded))

	assert.True(t, TicketActive.HoldsSeat())
	assert.True(t, TicketUsed.HoldsSeat())
	assert.False(t, TicketCancelled.HoldsSeat())
	assert.False(t, TicketRefunded.HoldsSeat())
}

func TestShowtimeStatusTransitions(t *testing.T) {
	assert.True(t, ShowtimeActive.CanTransitionTo(ShowtimeHousefull))
	assert.True(t, ShowtimeHousefull.CanTransitionTo(ShowtimeActive))
	assert.False(t, ShowtimeCancelled.CanTransitionTo(ShowtimeActive))
	assert.False(t, ShowtimeCompleted.CanTransitionTo(ShowtimeCancelled))
	assert.True(t, ShowtimeCancelled.IsTerminal())
}

func TestCreateBookingRequestValidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	valid := func() CreateBookingRequest {
		return CreateBookingRequest{
			MovieID:       "m1",
			TheaterID:     "t1",
			ShowtimeID:    "s1",
			CustomerName:  "Ana",
			CustomerEmail: "ana@example.com",
			NumberOfSeats: 2,
			SeatLabels:    []string{"A1", "A2"},
			PricePerSeat:  200,
			ShowDateTime:  now.Add(24 * time.Hour),
		}
	}

	req := valid()
	require.NoError(t, req.Validate(now))

	cases := map[string]func(r *CreateBookingRequest){
		"bad email":       func(r *CreateBookingRequest) { r.CustomerEmail = "nope" },
		"missing name":    func(r *CreateBookingRequest) { r.CustomerName = " " },
		"no seats":        func(r *CreateBookingRequest) { r.SeatLabels = nil; r.NumberOfSeats = 0 },
		"count mismatch":  func(r *CreateBookingRequest) { r.NumberOfSeats = 3 },
		"duplicate seats": func(r *CreateBookingRequest) { r.SeatLabels = []string{"A1", "A1"} },
		"past show":       func(r *CreateBookingRequest) { r.ShowDateTime = now.Add(-time.Minute) },
		"missing ids":     func(r *CreateBookingRequest) { r.ShowtimeID = "" },
		"blank seat":      func(r *CreateBookingRequest) { r.SeatLabels = []string{"A1", " "} },
		"unknown method":  func(r *CreateBookingRequest) { r.PaymentMethod = "CHEQUE" },
		"unknown seat":    func(r *CreateBookingRequest) { r.SeatType = "BALCONY" },
		"negative price":  func(r *CreateBookingRequest) { r.PricePerSeat = -1 },
		"long phone":      func(r *CreateBookingRequest) { r.CustomerPhone = "+91 98765 43210 ext 99" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid()
			mutate(&r)
			err := r.Validate(now)
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestValidationErrorsNameFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	req := CreateBookingRequest{
		MovieID:       "m1",
		TheaterID:     "t1",
		ShowtimeID:    "s1",
		CustomerName:  "Ana",
		CustomerEmail: "ana@",
		NumberOfSeats: 1,
		SeatLabels:    []string{"A1"},
		PaymentMethod: "CHEQUE",
		ShowDateTime:  now.Add(time.Hour),
	}
	err := req.Validate(now)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "customer_email: email")
	assert.Contains(t, err.Error(), "payment_method: oneof=")

	upd := UpdateCustomerRequest{CustomerName: "Ana", CustomerEmail: "ana@example.com"}
	require.NoError(t, upd.Validate())
	upd.CustomerEmail = ""
	err = upd.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "customer_email: required")
}

func TestUpdateShowtimeRequestValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	req := UpdateShowtimeRequest{ScreenNumber: 2, StartTime: start, EndTime: start.Add(2 * time.Hour), TotalSeats: 50}
	require.NoError(t, req.Validate())

	st := &Showtime{StartTime: start, EndTime: start.Add(2 * time.Hour)}
	assert.False(t, req.Reschedules(st))
	req.EndTime = start.Add(3 * time.Hour)
	assert.True(t, req.Reschedules(st))

	bad := req
	bad.TotalSeats = 0
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
	bad = req
	bad.ShowType = "HOLOGRAM"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
	bad = req
	bad.EndTime = start
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestBookingIsCancellable(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{Status: BookingConfirmed, ShowDateTime: now.Add(3 * time.Hour)}
	assert.True(t, b.IsCancellable(now, 2*time.Hour))

	b.ShowDateTime = now.Add(90 * time.Minute)
	assert.False(t, b.IsCancellable(now, 2*time.Hour))

	b.ShowDateTime = now.Add(3 * time.Hour)
	b.Status = BookingPending
	assert.False(t, b.IsCancellable(now, 2*time.Hour))
}

func TestTicketIsValidForEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tk := Ticket{Status: TicketActive, ValidUntil: now}
	assert.True(t, tk.IsValidForEntry(now.Add(-time.Nanosecond)))
	assert.False(t, tk.IsValidForEntry(now), "the show start itself is too late")
	assert.False(t, tk.IsValidForEntry(now.Add(time.Second)))
	tk.Status = TicketUsed
	assert.False(t, tk.IsValidForEntry(now.Add(-time.Hour)))
}

func TestCreateShowtimeRequestValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	req := CreateShowtimeRequest{
		MovieID: "m1", TheaterID: "t1", ScreenNumber: 1,
		StartTime: start, EndTime: start.Add(2 * time.Hour), TotalSeats: 100, Price: 200,
	}
	require.NoError(t, req.Validate())
	assert.Equal(t, ShowTypeRegular2D, req.ShowType)

	bad := req
	bad.EndTime = start
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = req
	bad.TotalSeats = 0
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = req
	bad.ShowType = "HOLOGRAM"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}
