package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketUsed      TicketStatus = "USED"
	TicketCancelled TicketStatus = "CANCELLED"
	TicketExpired   TicketStatus = "EXPIRED"
	TicketRefunded  TicketStatus = "REFUNDED"
)

// HoldsSeat reports whether a ticket in this state blocks its seat from reissue.
func (s TicketStatus) HoldsSeat() bool {
	return s != TicketCancelled && s != TicketRefunded
}

func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	if next == TicketRefunded {
		return s != TicketRefunded
	}
	return s == TicketActive && (next == TicketUsed || next == TicketCancelled || next == TicketExpired)
}

// ReleasedTicketStatuses lists the states that free a seat. The partial unique
// index on tickets mirrors this list.
var ReleasedTicketStatuses = []TicketStatus{TicketCancelled, TicketRefunded}

type SeatType string

const (
	SeatRegular  SeatType = "REGULAR"
	SeatPremium  SeatType = "PREMIUM"
	SeatVIP      SeatType = "VIP"
	SeatRecliner SeatType = "RECLINER"
	SeatGold     SeatType = "GOLD"
	SeatPlatinum SeatType = "PLATINUM"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string       `bun:"id,pk" json:"id"`
	TicketNumber  string       `bun:"ticket_number,notnull,unique" json:"ticket_number"`
	BookingID     string       `bun:"booking_id,notnull" json:"booking_id"`
	ShowtimeID    string       `bun:"showtime_id,notnull" json:"showtime_id"`
	MovieID       string       `bun:"movie_id,notnull" json:"movie_id"`
	TheaterID     string       `bun:"theater_id,notnull" json:"theater_id"`
	SeatLabel     string       `bun:"seat_label,notnull" json:"seat_label"`
	SeatType      SeatType     `bun:"seat_type,notnull" json:"seat_type"`
	Price         float64      `bun:"price,notnull" json:"price"`
	Status        TicketStatus `bun:"status,notnull" json:"status"`
	CustomerName  string       `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail string       `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone string       `bun:"customer_phone,nullzero" json:"customer_phone,omitempty"`
	ShowDateTime  time.Time    `bun:"show_date_time,notnull" json:"show_date_time"`
	ValidUntil    time.Time    `bun:"valid_until,notnull" json:"valid_until"`
	QRCode        string       `bun:"qr_code,notnull" json:"qr_code"`
	Barcode       string       `bun:"barcode,notnull" json:"barcode"`
	IssuedAt      time.Time    `bun:"issued_at,notnull" json:"issued_at"`
	UsedAt        time.Time    `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time    `bun:"updated_at,notnull" json:"updated_at"`
}

// IsValidForEntry is true while the ticket is ACTIVE and now is strictly
// before ValidUntil.
func (t *Ticket) IsValidForEntry(now time.Time) bool {
	return t.Status == TicketActive && now.Before(t.ValidUntil)
}

// TicketRequest describes one seat to be issued.
type TicketRequest struct {
	BookingID     string    `json:"booking_id" validate:"required"`
	ShowtimeID    string    `json:"showtime_id" validate:"required"`
	MovieID       string    `json:"movie_id"`
	TheaterID     string    `json:"theater_id"`
	SeatLabel     string    `json:"seat_label" validate:"required,notblank"`
	SeatType      SeatType  `json:"seat_type" validate:"omitempty,oneof=REGULAR PREMIUM VIP RECLINER GOLD PLATINUM"`
	Price         float64   `json:"price" validate:"gte=0"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	ShowDateTime  time.Time `json:"show_date_time" validate:"required"`
}

// Validate defaults SeatType to REGULAR.
func (r *TicketRequest) Validate() error {
	if err := checkTags(r); err != nil {
		return err
	}
	if r.SeatType == "" {
		r.SeatType = SeatRegular
	}
	return nil
}

// TicketValidation is the read-only answer to "may this ticket enter?".
type TicketValidation struct {
	TicketNumber string       `json:"ticket_number"`
	Status       TicketStatus `json:"status"`
	Valid        bool         `json:"valid"`
	Reason       string       `json:"reason,omitempty"`
}

// TicketFilter narrows ListTickets. Zero values are ignored; ShowFrom and
// ShowTo bound show_date_time inclusively.
type TicketFilter struct {
	BookingID     string
	ShowtimeID    string
	MovieID       string
	TheaterID     string
	CustomerEmail string
	CustomerPhone string
	SeatType      SeatType
	Status        TicketStatus
	ShowFrom      time.Time
	ShowTo        time.Time
	Limit         int
	Offset        int
}
