package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SagaOutcome string

const (
	SagaSucceeded   SagaOutcome = "SUCCEEDED"
	SagaFailed      SagaOutcome = "FAILED"
	SagaCompensated SagaOutcome = "COMPENSATED"
)

const (
	StepLockSeats     = "lock_seats"
	StepReserveSeats  = "reserve_seats"
	StepCreateBooking = "create_booking"
	StepIssueTickets  = "issue_tickets"
	StepReleaseSeats  = "release_seats"
	StepAbortBooking  = "abort_booking"
	StepCancelTickets = "cancel_tickets"
	StepRefundTickets = "refund_tickets"
)

// SagaStep records the outcome of one step of a cross-component operation.
type SagaStep struct {
	bun.BaseModel `bun:"table:saga_steps"`

	ID        string      `bun:"id,pk" json:"id"`
	BookingID string      `bun:"booking_id,notnull" json:"booking_id"`
	Step      string      `bun:"step,notnull" json:"step"`
	Outcome   SagaOutcome `bun:"outcome,notnull" json:"outcome"`
	Detail    string      `bun:"detail" json:"detail,omitempty"`
	CreatedAt time.Time   `bun:"created_at,notnull" json:"created_at"`
}
