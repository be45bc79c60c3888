// Package reservation coordinates showtime inventory, bookings and tickets.
// Each step is a separate write owned by its component, so failures are
// undone with explicit compensating calls and every step is recorded.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/events"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type Inventory interface {
	GetShowtime(ctx context.Context, id string) (*models.Showtime, error)
	ReserveSeats(ctx context.Context, id string, n int) error
	ReleaseSeats(ctx context.Context, id string, n int) error
}

type Bookings interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, idOrReference string) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, idOrReference, paymentID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, idOrReference, reason string) (*models.Booking, error)
	RefundBooking(ctx context.Context, idOrReference string) (*models.Booking, error)
	AbortBooking(ctx context.Context, id, reason string) (*models.Booking, error)
	MarkPaymentFailed(ctx context.Context, idOrReference string) (*models.Booking, error)
	ExpireOldBookings(ctx context.Context) ([]models.Booking, error)
	HoldSeats(ctx context.Context, id string, n int) error
	ReleaseHeldSeats(ctx context.Context, id string) (int, error)
}

type Tickets interface {
	CreateTickets(ctx context.Context, reqs []models.TicketRequest) ([]models.Ticket, error)
	CancelTicketsForBooking(ctx context.Context, bookingID string) (int, error)
	RefundTicketsForBooking(ctx context.Context, bookingID string) (int, error)
}

// SeatLocker is optional. Without it the database constraints alone arbitrate.
type SeatLocker interface {
	LockSeats(ctx context.Context, showtimeID string, labels []string, owner string) (bool, error)
	UnlockSeats(ctx context.Context, showtimeID string, labels []string, owner string) error
}

type StepLog interface {
	InsertStep(ctx context.Context, step *models.SagaStep) error
	ListSteps(ctx context.Context, bookingID string) ([]models.SagaStep, error)
}

type Orchestrator struct {
	Showtimes Inventory
	Bookings  Bookings
	Tickets   Tickets
	Locks     SeatLocker
	Steps     StepLog
	Events    *events.Emitter
	Clock     clock.Clock
	Logger    *logger.Logger
}

// Reservation is the result of a successful PlaceBooking.
type Reservation struct {
	Booking *models.Booking `json:"booking"`
	Tickets []models.Ticket `json:"tickets"`
}

func (o *Orchestrator) record(ctx context.Context, bookingID, step string, outcome models.SagaOutcome, detail string) {
	o.Logger.LogSaga(bookingID, step, string(outcome))
	if o.Steps == nil {
		return
	}
	err := o.Steps.InsertStep(ctx, &models.SagaStep{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Step:      step,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: o.Clock.Now(),
	})
	if err != nil {
		o.Logger.Error("SAGA", fmt.Sprintf("failed to record step %s for %s: %v", step, bookingID, err))
	}
}

func (o *Orchestrator) SagaSteps(ctx context.Context, bookingID string) ([]models.SagaStep, error) {
	if o.Steps == nil {
		return nil, nil
	}
	return o.Steps.ListSteps(ctx, bookingID)
}

// PlaceBooking creates a PENDING booking, reserves its seats and issues one
// ticket per seat. Movie, theater, price and show time come from the showtime.
// On failure everything done so far is compensated and the booking is aborted.
func (o *Orchestrator) PlaceBooking(ctx context.Context, req models.CreateBookingRequest) (*Reservation, error) {
	if req.ShowtimeID == "" {
		return nil, models.Invalid("showtime_id is required")
	}
	st, err := o.Showtimes.GetShowtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}
	if st.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: showtime %s is %s", models.ErrInvalidState, st.ID, st.Status)
	}
	if req.NumberOfSeats == 0 {
		req.NumberOfSeats = len(req.SeatLabels)
	}
	req.MovieID = st.MovieID
	req.TheaterID = st.TheaterID
	req.PricePerSeat = st.Price
	req.ShowDateTime = st.StartTime

	b, err := o.Bookings.CreateBooking(ctx, req)
	if err != nil {
		return nil, err
	}
	o.record(ctx, b.ID, models.StepCreateBooking, models.SagaSucceeded, b.BookingReference)

	if o.Locks != nil {
		ok, err := o.Locks.LockSeats(ctx, st.ID, b.SeatLabels, b.ID)
		if err != nil || !ok {
			if err == nil {
				err = fmt.Errorf("%w: seats are being reserved by another booking", models.ErrSeatAlreadyBooked)
			}
			o.record(ctx, b.ID, models.StepLockSeats, models.SagaFailed, err.Error())
			return nil, o.abort(ctx, b, err)
		}
		o.record(ctx, b.ID, models.StepLockSeats, models.SagaSucceeded, "")
		defer func() {
			if err := o.Locks.UnlockSeats(context.WithoutCancel(ctx), st.ID, b.SeatLabels, b.ID); err != nil {
				o.Logger.Warn("SAGA", fmt.Sprintf("failed to unlock seats of %s: %v", b.BookingReference, err))
			}
		}()
	}

	if err := o.Showtimes.ReserveSeats(ctx, st.ID, b.NumberOfSeats); err != nil {
		o.record(ctx, b.ID, models.StepReserveSeats, models.SagaFailed, err.Error())
		return nil, o.abort(ctx, b, err)
	}
	// Seats count as the booking's only once this is recorded. A crash before
	// it leaks them rather than letting a later release double count.
	if err := o.Bookings.HoldSeats(ctx, b.ID, b.NumberOfSeats); err != nil {
		o.record(ctx, b.ID, models.StepReserveSeats, models.SagaFailed, err.Error())
		if relErr := o.returnSeats(ctx, b, b.NumberOfSeats); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, o.abort(ctx, b, err)
	}
	b.SeatsHeld = b.NumberOfSeats
	o.record(ctx, b.ID, models.StepReserveSeats, models.SagaSucceeded, fmt.Sprintf("%d seats", b.NumberOfSeats))

	issued, err := o.Tickets.CreateTickets(ctx, ticketRequests(b, req.SeatType))
	if err != nil {
		o.record(ctx, b.ID, models.StepIssueTickets, models.SagaFailed, err.Error())
		if relErr := o.release(ctx, b); relErr != nil {
			err = errors.Join(err, relErr)
		}
		return nil, o.abort(ctx, b, err)
	}
	o.record(ctx, b.ID, models.StepIssueTickets, models.SagaSucceeded, fmt.Sprintf("%d tickets", len(issued)))

	o.Events.BookingEvent(ctx, models.TopicBookingCreated, b, o.Clock.Now())
	return &Reservation{Booking: b, Tickets: issued}, nil
}

func ticketRequests(b *models.Booking, seatType models.SeatType) []models.TicketRequest {
	reqs := make([]models.TicketRequest, 0, len(b.SeatLabels))
	for _, label := range b.SeatLabels {
		reqs = append(reqs, models.TicketRequest{
			BookingID:     b.ID,
			ShowtimeID:    b.ShowtimeID,
			MovieID:       b.MovieID,
			TheaterID:     b.TheaterID,
			SeatLabel:     label,
			SeatType:      seatType,
			Price:         b.PricePerSeat,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			ShowDateTime:  b.ShowDateTime,
		})
	}
	return reqs
}

// abort cancels the PENDING booking and returns cause, joined with any
// failure of the compensation itself.
func (o *Orchestrator) abort(ctx context.Context, b *models.Booking, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if _, err := o.Bookings.AbortBooking(ctx, b.ID, "reservation failed: "+cause.Error()); err != nil {
		o.record(ctx, b.ID, models.StepAbortBooking, models.SagaFailed, err.Error())
		return errors.Join(cause, fmt.Errorf("abort booking %s: %w", b.BookingReference, err))
	}
	o.record(ctx, b.ID, models.StepAbortBooking, models.SagaCompensated, "")
	return cause
}

// release gives back the seats the booking still holds. A booking whose
// reservation never completed, or whose seats were already returned, holds
// none and release is a no-op.
func (o *Orchestrator) release(ctx context.Context, b *models.Booking) error {
	ctx = context.WithoutCancel(ctx)
	n, err := o.Bookings.ReleaseHeldSeats(ctx, b.ID)
	if err != nil {
		o.record(ctx, b.ID, models.StepReleaseSeats, models.SagaFailed, err.Error())
		return fmt.Errorf("release seats of %s: %w", b.BookingReference, err)
	}
	b.SeatsHeld = 0
	if n == 0 {
		o.record(ctx, b.ID, models.StepReleaseSeats, models.SagaSucceeded, "no seats held")
		return nil
	}
	if err := o.returnSeats(ctx, b, n); err != nil {
		if holdErr := o.Bookings.HoldSeats(ctx, b.ID, n); holdErr != nil {
			err = errors.Join(err, fmt.Errorf("restore held seats of %s: %w", b.BookingReference, holdErr))
		} else {
			b.SeatsHeld = n
		}
		return err
	}
	return nil
}

// returnSeats adds n seats back to the showtime. A showtime that has been
// cancelled or completed no longer tracks inventory, so there is nothing to
// return.
func (o *Orchestrator) returnSeats(ctx context.Context, b *models.Booking, n int) error {
	err := o.Showtimes.ReleaseSeats(context.WithoutCancel(ctx), b.ShowtimeID, n)
	switch {
	case err == nil:
		o.record(ctx, b.ID, models.StepReleaseSeats, models.SagaCompensated, fmt.Sprintf("%d seats", n))
		return nil
	case errors.Is(err, models.ErrInvalidState):
		o.record(ctx, b.ID, models.StepReleaseSeats, models.SagaSucceeded, "showtime closed: "+err.Error())
		return nil
	default:
		o.record(ctx, b.ID, models.StepReleaseSeats, models.SagaFailed, err.Error())
		return fmt.Errorf("release seats of %s: %w", b.BookingReference, err)
	}
}

func (o *Orchestrator) cancelTickets(ctx context.Context, b *models.Booking) error {
	n, err := o.Tickets.CancelTicketsForBooking(context.WithoutCancel(ctx), b.ID)
	if err != nil {
		o.record(ctx, b.ID, models.StepCancelTickets, models.SagaFailed, err.Error())
		return fmt.Errorf("cancel tickets of %s: %w", b.BookingReference, err)
	}
	o.record(ctx, b.ID, models.StepCancelTickets, models.SagaSucceeded, fmt.Sprintf("%d tickets", n))
	return nil
}

// ConfirmBooking applies a successful payment. Confirming twice with the
// same payment id publishes nothing the second time.
func (o *Orchestrator) ConfirmBooking(ctx context.Context, idOrReference, paymentID string) (*models.Booking, error) {
	before, err := o.Bookings.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	b, err := o.Bookings.ConfirmBooking(ctx, before.ID, paymentID)
	if err != nil {
		return nil, err
	}
	if before.Status != models.BookingConfirmed {
		o.Events.BookingEvent(ctx, models.TopicBookingConfirmed, b, o.Clock.Now())
	}
	return b, nil
}

// PaymentFailed records a declined payment; the booking keeps its seats
// until it is paid or the sweeper expires it.
func (o *Orchestrator) PaymentFailed(ctx context.Context, idOrReference string) (*models.Booking, error) {
	return o.Bookings.MarkPaymentFailed(ctx, idOrReference)
}

// HandlePaymentEvent is the Kafka payment consumer's handler.
func (o *Orchestrator) HandlePaymentEvent(ctx context.Context, topic string, evt models.PaymentEvent) error {
	var err error
	switch topic {
	case models.TopicPaymentSucceeded:
		_, err = o.ConfirmBooking(ctx, evt.Booking, evt.PaymentID)
	case models.TopicPaymentFailed:
		_, err = o.PaymentFailed(ctx, evt.Booking)
	default:
		return fmt.Errorf("unexpected payment topic %q", topic)
	}
	// Redelivered or late signals for bookings that moved on are not retried.
	if errors.Is(err, models.ErrInvalidState) || errors.Is(err, models.ErrNotFound) {
		o.Logger.Warn("PAYMENT", fmt.Sprintf("ignoring %s for %s: %v", topic, evt.Booking, err))
		return nil
	}
	return err
}

// CancelBooking cancels a confirmed booking under the cancellation policy,
// cancels its tickets, returns its seats and refunds the payment.
func (o *Orchestrator) CancelBooking(ctx context.Context, idOrReference, reason string) (*models.Booking, error) {
	before, err := o.Bookings.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	b, err := o.Bookings.CancelBooking(ctx, before.ID, reason)
	if err != nil {
		return nil, err
	}
	o.Events.BookingEvent(ctx, models.TopicBookingCancelled, b, o.Clock.Now())

	var errs []error
	if err := o.cancelTickets(ctx, b); err != nil {
		errs = append(errs, err)
	}
	if err := o.release(ctx, b); err != nil {
		errs = append(errs, err)
	}
	if b.PaymentStatus == models.PaymentCompleted || b.PaymentStatus == models.PaymentPartialRefund {
		refunded, err := o.Bookings.RefundBooking(context.WithoutCancel(ctx), b.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("refund %s: %w", b.BookingReference, err))
		} else {
			b = refunded
			o.Events.BookingEvent(ctx, models.TopicBookingRefunded, b, o.Clock.Now())
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b, nil
}

// RefundBooking refunds the payment and every ticket and returns any seats
// the booking still holds.
func (o *Orchestrator) RefundBooking(ctx context.Context, idOrReference string) (*models.Booking, error) {
	before, err := o.Bookings.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	if before.PaymentStatus == models.PaymentRefunded {
		return before, nil
	}
	b, err := o.Bookings.RefundBooking(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	o.Events.BookingEvent(ctx, models.TopicBookingRefunded, b, o.Clock.Now())

	n, err := o.Tickets.RefundTicketsForBooking(context.WithoutCancel(ctx), b.ID)
	if err != nil {
		o.record(ctx, b.ID, models.StepRefundTickets, models.SagaFailed, err.Error())
		return nil, fmt.Errorf("refund tickets of %s: %w", b.BookingReference, err)
	}
	o.record(ctx, b.ID, models.StepRefundTickets, models.SagaSucceeded, fmt.Sprintf("%d tickets", n))

	if err := o.release(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ExpireBookings expires unpaid bookings past the payment window, cancels
// their tickets and returns their seats. Per-booking failures are logged and
// skipped. It returns how many bookings were expired.
func (o *Orchestrator) ExpireBookings(ctx context.Context) (int, error) {
	expired, err := o.Bookings.ExpireOldBookings(ctx)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		b := &expired[i]
		if err := o.cancelTickets(ctx, b); err != nil {
			o.Logger.Error("SWEEPER", err.Error())
		}
		if err := o.release(ctx, b); err != nil {
			o.Logger.Error("SWEEPER", err.Error())
		}
		o.Events.BookingEvent(ctx, models.TopicBookingExpired, b, o.Clock.Now())
	}
	return len(expired), nil
}
