package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	"ms-moviebooking/internal/utils"
)

const defaultCancellationReason = "Cancelled by customer"

type BookingDBLayer interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, idOrReference string) (*models.Booking, error)
	ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error)
	Confirm(ctx context.Context, id, paymentID string, now time.Time) (bool, error)
	Cancel(ctx context.Context, id, reason string, now time.Time) (bool, error)
	Abort(ctx context.Context, id, reason string, now time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id string, now time.Time) (bool, error)
	Refund(ctx context.Context, id string, now time.Time) (bool, error)
	UpdateCustomer(ctx context.Context, id string, req models.UpdateCustomerRequest, now time.Time) (bool, error)
	ExpireCandidates(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
	Expire(ctx context.Context, id string, now time.Time) (bool, error)
	MarkSeatsHeld(ctx context.Context, id string, n int, now time.Time) (bool, error)
	ClaimHeldSeats(ctx context.Context, id string, now time.Time) (int, error)
	Stats(ctx context.Context, scope models.StatsScope) (*models.BookingStats, error)
}

// BookingService owns the booking record: amounts, payment state and the
// cancellation policy. Seats and tickets are coordinated by the caller.
type BookingService struct {
	DB     BookingDBLayer
	Clock  clock.Clock
	Logger *logger.Logger

	pricing            models.Pricing
	paymentWindow      time.Duration
	cancellationCutoff time.Duration
}

type Option func(*BookingService)

func WithPricing(p models.Pricing) Option {
	return func(s *BookingService) { s.pricing = p }
}

// WithPaymentWindow sets how long a PENDING booking may wait for payment.
func WithPaymentWindow(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.paymentWindow = d
		}
	}
}

// WithCancellationCutoff sets the minimum lead time before the show for cancellations.
func WithCancellationCutoff(d time.Duration) Option {
	return func(s *BookingService) {
		if d >= 0 {
			s.cancellationCutoff = d
		}
	}
}

func NewBookingService(db BookingDBLayer, clk clock.Clock, log *logger.Logger, opts ...Option) *BookingService {
	s := &BookingService{
		DB:                 db,
		Clock:              clk,
		Logger:             log,
		pricing:            models.Pricing{TaxRate: 0.18, ConvenienceFee: 50},
		paymentWindow:      15 * time.Minute,
		cancellationCutoff: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) Pricing() models.Pricing {
	return s.pricing
}

// CreateBooking validates the request, computes amounts and stores a PENDING booking.
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	now := s.Clock.Now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	amounts := s.pricing.Compute(req.NumberOfSeats, req.PricePerSeat)
	b := &models.Booking{
		ID:               uuid.NewString(),
		BookingReference: utils.GenerateBookingReference(now),
		MovieID:          req.MovieID,
		TheaterID:        req.TheaterID,
		ShowtimeID:       req.ShowtimeID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		NumberOfSeats:    req.NumberOfSeats,
		SeatLabels:       append([]string(nil), req.SeatLabels...),
		PricePerSeat:     req.PricePerSeat,
		TotalAmount:      amounts.Total,
		TaxAmount:        amounts.Tax,
		FinalAmount:      amounts.Final,
		Status:           models.BookingPending,
		PaymentStatus:    models.PaymentPending,
		PaymentMethod:    req.PaymentMethod,
		ShowDateTime:     req.ShowDateTime.UTC(),
		BookingDate:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.DB.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	s.Logger.LogBooking("CREATED", b.BookingReference, fmt.Sprintf("%d seats, final amount %.2f", b.NumberOfSeats, b.FinalAmount))
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, idOrReference string) (*models.Booking, error) {
	return s.DB.GetBooking(ctx, idOrReference)
}

func (s *BookingService) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	return s.DB.ListBookings(ctx, f)
}

func (s *BookingService) Stats(ctx context.Context, scope models.StatsScope) (*models.BookingStats, error) {
	return s.DB.Stats(ctx, scope)
}

// ConfirmBooking records a successful payment. Repeating a confirmation with
// the same payment id is a no-op.
func (s *BookingService) ConfirmBooking(ctx context.Context, idOrReference, paymentID string) (*models.Booking, error) {
	if paymentID == "" {
		return nil, models.Invalid("payment_id is required")
	}
	b, err := s.DB.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingConfirmed {
		return alreadyConfirmed(b, paymentID)
	}
	if b.Status != models.BookingPending || !b.PaymentStatus.CanTransitionTo(models.PaymentCompleted) {
		return nil, fmt.Errorf("%w: booking %s is %s/%s", models.ErrInvalidState, b.BookingReference, b.Status, b.PaymentStatus)
	}

	now := s.Clock.Now()
	ok, err := s.DB.Confirm(ctx, b.ID, paymentID, now)
	if err != nil {
		return nil, fmt.Errorf("confirm booking %s: %w", b.BookingReference, err)
	}
	if !ok {
		current, err := s.DB.GetBooking(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.BookingConfirmed {
			return alreadyConfirmed(current, paymentID)
		}
		return nil, fmt.Errorf("%w: booking %s is %s", models.ErrInvalidState, b.BookingReference, current.Status)
	}

	b.Status = models.BookingConfirmed
	b.PaymentStatus = models.PaymentCompleted
	b.PaymentID = paymentID
	b.PaymentDate = now
	b.UpdatedAt = now
	s.Logger.LogBooking("CONFIRMED", b.BookingReference, "payment "+paymentID)
	return b, nil
}

func alreadyConfirmed(b *models.Booking, paymentID string) (*models.Booking, error) {
	if b.PaymentID == paymentID {
		return b, nil
	}
	return nil, fmt.Errorf("%w: booking %s already confirmed with a different payment", models.ErrInvalidState, b.BookingReference)
}

// CancelBooking cancels a CONFIRMED booking more than the cutoff before the show.
func (s *BookingService) CancelBooking(ctx context.Context, idOrReference, reason string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if !b.IsCancellable(now, s.cancellationCutoff) {
		return nil, fmt.Errorf("%w: booking %s is %s and shows at %s; only confirmed bookings more than %s before the show can be cancelled",
			models.ErrCancellationPolicy, b.BookingReference, b.Status, b.ShowDateTime.Format(time.RFC3339), s.cancellationCutoff)
	}
	if reason == "" {
		reason = defaultCancellationReason
	}

	ok, err := s.DB.Cancel(ctx, b.ID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("cancel booking %s: %w", b.BookingReference, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s changed concurrently", models.ErrInvalidState, b.BookingReference)
	}

	b.Status = models.BookingCancelled
	b.CancellationReason = reason
	b.CancellationDate = now
	b.UpdatedAt = now
	s.Logger.LogBooking("CANCELLED", b.BookingReference, reason)
	return b, nil
}

// AbortBooking cancels a PENDING booking whose reservation failed midway.
func (s *BookingService) AbortBooking(ctx context.Context, id, reason string) (*models.Booking, error) {
	now := s.Clock.Now()
	ok, err := s.DB.Abort(ctx, id, reason, now)
	if err != nil {
		return nil, fmt.Errorf("abort booking %s: %w", id, err)
	}
	b, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s is %s, cannot abort", models.ErrInvalidState, b.BookingReference, b.Status)
	}
	s.Logger.LogBooking("ABORTED", b.BookingReference, reason)
	return b, nil
}

// MarkPaymentFailed records a declined payment. The booking stays PENDING
// until it is paid again or expires.
func (s *BookingService) MarkPaymentFailed(ctx context.Context, idOrReference string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.PaymentFailed {
		return b, nil
	}
	if b.Status != models.BookingPending || !b.PaymentStatus.CanTransitionTo(models.PaymentFailed) {
		return nil, fmt.Errorf("%w: booking %s is %s/%s", models.ErrInvalidState, b.BookingReference, b.Status, b.PaymentStatus)
	}
	now := s.Clock.Now()
	ok, err := s.DB.MarkPaymentFailed(ctx, b.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark payment failed for %s: %w", b.BookingReference, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s changed concurrently", models.ErrInvalidState, b.BookingReference)
	}
	b.PaymentStatus = models.PaymentFailed
	b.UpdatedAt = now
	s.Logger.LogBooking("PAYMENT_FAILED", b.BookingReference, "payment declined")
	return b, nil
}

// RefundBooking moves the payment to REFUNDED. Booking status is left as is.
func (s *BookingService) RefundBooking(ctx context.Context, idOrReference string) (*models.Booking, error) {
	b, err := s.DB.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == models.PaymentRefunded {
		return b, nil
	}
	if !b.PaymentStatus.CanTransitionTo(models.PaymentRefunded) {
		return nil, fmt.Errorf("%w: booking %s payment is %s", models.ErrInvalidState, b.BookingReference, b.PaymentStatus)
	}

	now := s.Clock.Now()
	ok, err := s.DB.Refund(ctx, b.ID, now)
	if err != nil {
		return nil, fmt.Errorf("refund booking %s: %w", b.BookingReference, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking %s changed concurrently", models.ErrInvalidState, b.BookingReference)
	}
	b.PaymentStatus = models.PaymentRefunded
	b.UpdatedAt = now
	s.Logger.LogBooking("REFUNDED", b.BookingReference, fmt.Sprintf("%.2f", b.FinalAmount))
	return b, nil
}

// UpdateCustomerDetails changes contact fields only.
func (s *BookingService) UpdateCustomerDetails(ctx context.Context, idOrReference string, req models.UpdateCustomerRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := s.DB.GetBooking(ctx, idOrReference)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if _, err := s.DB.UpdateCustomer(ctx, b.ID, req, now); err != nil {
		return nil, fmt.Errorf("update booking %s: %w", b.BookingReference, err)
	}
	b.CustomerName = req.CustomerName
	b.CustomerEmail = req.CustomerEmail
	b.CustomerPhone = req.CustomerPhone
	b.UpdatedAt = now
	return b, nil
}

// HoldSeats records that the booking owns n reserved showtime seats.
func (s *BookingService) HoldSeats(ctx context.Context, id string, n int) error {
	ok, err := s.DB.MarkSeatsHeld(ctx, id, n, s.Clock.Now())
	if err != nil {
		return fmt.Errorf("hold seats for booking %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: booking %s already holds seats", models.ErrInvalidState, id)
	}
	return nil
}

// ReleaseHeldSeats takes the booking's held seats off it and returns how many
// the caller must give back to the showtime. Zero means none were held or
// another caller already took them.
func (s *BookingService) ReleaseHeldSeats(ctx context.Context, id string) (int, error) {
	n, err := s.DB.ClaimHeldSeats(ctx, id, s.Clock.Now())
	if err != nil {
		return 0, fmt.Errorf("release held seats of booking %s: %w", id, err)
	}
	return n, nil
}

// ExpireOldBookings expires PENDING bookings older than the payment window and
// returns the ones it transitioned. A row that fails is logged and skipped.
func (s *BookingService) ExpireOldBookings(ctx context.Context) ([]models.Booking, error) {
	now := s.Clock.Now()
	candidates, err := s.DB.ExpireCandidates(ctx, now.Add(-s.paymentWindow))
	if err != nil {
		return nil, fmt.Errorf("find expired bookings: %w", err)
	}

	expired := make([]models.Booking, 0, len(candidates))
	for _, b := range candidates {
		ok, err := s.DB.Expire(ctx, b.ID, now)
		if err != nil {
			s.Logger.Error("BOOKING", fmt.Sprintf("failed to expire booking %s: %v", b.BookingReference, err))
			continue
		}
		if !ok {
			continue
		}
		b.Status = models.BookingExpired
		b.UpdatedAt = now
		expired = append(expired, b)
		s.Logger.LogBooking("EXPIRED", b.BookingReference, "payment window elapsed")
	}
	return expired, nil
}
