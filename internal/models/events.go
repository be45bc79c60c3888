package models

import "time"

const (
	TopicBookingCreated   = "moviebooking.booking.created"
	TopicBookingConfirmed = "moviebooking.booking.confirmed"
	TopicBookingCancelled = "moviebooking.booking.cancelled"
	TopicBookingExpired   = "moviebooking.booking.expired"
	TopicBookingRefunded  = "moviebooking.booking.refunded"

	TopicPaymentSucceeded = "moviebooking.payment.succeeded"
	TopicPaymentFailed    = "moviebooking.payment.failed"
)

// BookingTopics are the topics the service publishes to.
var BookingTopics = []string{
	TopicBookingCreated,
	TopicBookingConfirmed,
	TopicBookingCancelled,
	TopicBookingExpired,
	TopicBookingRefunded,
}

// BookingEvent is the payload published for every booking lifecycle change.
type BookingEvent struct {
	BookingID        string        `json:"booking_id"`
	BookingReference string        `json:"booking_reference"`
	ShowtimeID       string        `json:"showtime_id"`
	MovieID          string        `json:"movie_id"`
	TheaterID        string        `json:"theater_id"`
	CustomerEmail    string        `json:"customer_email"`
	SeatLabels       []string      `json:"seat_labels"`
	FinalAmount      float64       `json:"final_amount"`
	Status           BookingStatus `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	Reason           string        `json:"reason,omitempty"`
	OccurredAt       time.Time     `json:"occurred_at"`
}

func NewBookingEvent(b *Booking, occurredAt time.Time) BookingEvent {
	return BookingEvent{
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		ShowtimeID:       b.ShowtimeID,
		MovieID:          b.MovieID,
		TheaterID:        b.TheaterID,
		CustomerEmail:    b.CustomerEmail,
		SeatLabels:       b.SeatLabels,
		FinalAmount:      b.FinalAmount,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		Reason:           b.CancellationReason,
		OccurredAt:       occurredAt,
	}
}

// PaymentEvent is the external payment signal. Booking may carry the booking id
// or its reference.
type PaymentEvent struct {
	Booking    string    `json:"booking"`
	PaymentID  string    `json:"payment_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
