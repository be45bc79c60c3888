package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

// CanTransitionTo encodes the booking lifecycle. PENDING -> CANCELLED is only
// taken when a reservation is aborted before payment.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingExpired || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentCompleted     PaymentStatus = "COMPLETED"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentRefunded      PaymentStatus = "REFUNDED"
	PaymentPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentPending:
		return next == PaymentCompleted || next == PaymentFailed
	case PaymentFailed:
		// a retried payment may still settle a PENDING booking
		return next == PaymentCompleted
	case PaymentCompleted:
		return next == PaymentRefunded || next == PaymentPartialRefund
	case PaymentPartialRefund:
		return next == PaymentRefunded
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentNetBanking PaymentMethod = "NET_BANKING"
	PaymentUPI        PaymentMethod = "UPI"
	PaymentWallet     PaymentMethod = "WALLET"
	PaymentCash       PaymentMethod = "CASH"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                 string        `bun:"id,pk" json:"id"`
	BookingReference   string        `bun:"booking_reference,notnull,unique" json:"booking_reference"`
	MovieID            string        `bun:"movie_id,notnull" json:"movie_id"`
	TheaterID          string        `bun:"theater_id,notnull" json:"theater_id"`
	ShowtimeID         string        `bun:"showtime_id,notnull" json:"showtime_id"`
	CustomerName       string        `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail      string        `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone      string        `bun:"customer_phone" json:"customer_phone,omitempty"`
	NumberOfSeats      int           `bun:"number_of_seats,notnull" json:"number_of_seats"`
	SeatLabels         []string      `bun:"seat_labels" json:"seat_labels"`
	SeatsHeld          int           `bun:"seats_held,notnull,default:0" json:"seats_held"`
	PricePerSeat       float64       `bun:"price_per_seat,notnull" json:"price_per_seat"`
	TotalAmount        float64       `bun:"total_amount,notnull" json:"total_amount"`
	TaxAmount          float64       `bun:"tax_amount,notnull" json:"tax_amount"`
	FinalAmount        float64       `bun:"final_amount,notnull" json:"final_amount"`
	Status             BookingStatus `bun:"status,notnull" json:"status"`
	PaymentStatus      PaymentStatus `bun:"payment_status,notnull" json:"payment_status"`
	PaymentID          string        `bun:"payment_id,nullzero" json:"payment_id,omitempty"`
	PaymentMethod      PaymentMethod `bun:"payment_method,nullzero" json:"payment_method,omitempty"`
	ShowDateTime       time.Time     `bun:"show_date_time,notnull" json:"show_date_time"`
	BookingDate        time.Time     `bun:"booking_date,notnull" json:"booking_date"`
	PaymentDate        time.Time     `bun:"payment_date,nullzero" json:"payment_date,omitempty"`
	CancellationDate   time.Time     `bun:"cancellation_date,nullzero" json:"cancellation_date,omitempty"`
	CancellationReason string        `bun:"cancellation_reason,nullzero" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time     `bun:"updated_at,notnull" json:"updated_at"`
}

// IsCancellable is true for confirmed bookings whose show starts more than
// cutoff after now.
func (b *Booking) IsCancellable(now time.Time, cutoff time.Duration) bool {
	return b.Status == BookingConfirmed && b.ShowDateTime.After(now.Add(cutoff))
}

type CreateBookingRequest struct {
	MovieID       string        `json:"movie_id" validate:"required,notblank"`
	TheaterID     string        `json:"theater_id" validate:"required,notblank"`
	ShowtimeID    string        `json:"showtime_id" validate:"required,notblank"`
	CustomerName  string        `json:"customer_name" validate:"required,notblank,max=255"`
	CustomerEmail string        `json:"customer_email" validate:"required,email"`
	CustomerPhone string        `json:"customer_phone,omitempty" validate:"omitempty,max=20"`
	NumberOfSeats int           `json:"number_of_seats" validate:"required,gt=0"`
	SeatLabels    []string      `json:"seat_labels" validate:"required,min=1,unique,dive,notblank"`
	SeatType      SeatType      `json:"seat_type,omitempty" validate:"omitempty,oneof=REGULAR PREMIUM VIP RECLINER GOLD PLATINUM"`
	PricePerSeat  float64       `json:"price_per_seat" validate:"gte=0"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty" validate:"omitempty,oneof=CREDIT_CARD DEBIT_CARD NET_BANKING UPI WALLET CASH"`
	ShowDateTime  time.Time     `json:"show_date_time" validate:"required"`
}

// Validate checks the request shape against now. It does not consult the showtime.
func (r *CreateBookingRequest) Validate(now time.Time) error {
	if err := checkTags(r); err != nil {
		return err
	}
	if r.NumberOfSeats != len(r.SeatLabels) {
		return Invalid("number_of_seats %d does not match %d seat labels", r.NumberOfSeats, len(r.SeatLabels))
	}
	if !r.ShowDateTime.After(now) {
		return Invalid("show time %s is not in the future", r.ShowDateTime.Format(time.RFC3339))
	}
	return nil
}

type UpdateCustomerRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,notblank,max=255"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=20"`
}

func (r *UpdateCustomerRequest) Validate() error {
	return checkTags(r)
}

// Pricing holds the fee schedule applied to every booking.
type Pricing struct {
	TaxRate        float64
	ConvenienceFee float64
}

type Amounts struct {
	Total float64
	Tax   float64
	Final float64
}

// Compute returns total = seats*price + fee, tax = total*rate, final = total+tax,
// each rounded to cents.
func (p Pricing) Compute(seats int, pricePerSeat float64) Amounts {
	total := RoundCents(float64(seats)*pricePerSeat + p.ConvenienceFee)
	tax := RoundCents(total * p.TaxRate)
	return Amounts{
		Total: total,
		Tax:   tax,
		Final: RoundCents(total + tax),
	}
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

type BookingFilter struct {
	CustomerEmail string
	CustomerPhone string
	MovieID       string
	TheaterID     string
	ShowtimeID    string
	Status        BookingStatus
	PaymentStatus PaymentStatus
	BookedFrom    time.Time
	BookedTo      time.Time
	ShowFrom      time.Time
	ShowTo        time.Time
	Limit         int
	Offset        int
}

type StatsScope struct {
	ShowtimeID string
	MovieID    string
	TheaterID  string
}

// BookingStats aggregates confirmed bookings and completed revenue for one scope.
type BookingStats struct {
	ConfirmedBookings int     `json:"confirmed_bookings"`
	SeatsBooked       int     `json:"seats_booked"`
	Revenue           float64 `json:"revenue"`
}
