package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/models"
)

// LiveSeatIndex is the partial unique index that keeps at most one
// seat-holding ticket per (showtime, seat label).
const LiveSeatIndex = "ux_tickets_live_seat"

var tables = []interface{}{
	(*models.Showtime)(nil),
	(*models.Booking)(nil),
	(*models.Ticket)(nil),
	(*models.SagaStep)(nil),
}

type index struct {
	name    string
	model   interface{}
	columns []string
	unique  bool
	where   string
}

var indexes = []index{
	{name: "ix_showtimes_movie_theater_start", model: (*models.Showtime)(nil), columns: []string{"movie_id", "theater_id", "start_time"}},
	{name: "ix_bookings_showtime", model: (*models.Booking)(nil), columns: []string{"showtime_id"}},
	{name: "ix_bookings_status_date", model: (*models.Booking)(nil), columns: []string{"status", "booking_date"}},
	{name: "ix_bookings_customer_email", model: (*models.Booking)(nil), columns: []string{"customer_email"}},
	{name: "ix_tickets_booking", model: (*models.Ticket)(nil), columns: []string{"booking_id"}},
	{name: "ix_tickets_status_valid_until", model: (*models.Ticket)(nil), columns: []string{"status", "valid_until"}},
	{name: "ix_tickets_customer_phone", model: (*models.Ticket)(nil), columns: []string{"customer_phone"}},
	{name: "ix_tickets_theater_show", model: (*models.Ticket)(nil), columns: []string{"theater_id", "show_date_time"}},
	{
		name:    LiveSeatIndex,
		model:   (*models.Ticket)(nil),
		columns: []string{"showtime_id", "seat_label"},
		unique:  true,
		where:   "status NOT IN ('CANCELLED', 'REFUNDED')",
	},
	{name: "ix_saga_steps_booking", model: (*models.SagaStep)(nil), columns: []string{"booking_id"}},
}

// CreateSchema creates every table and index from the bun models. Postgres
// deployments use the versioned migrations instead; this path serves sqlite.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	for _, ix := range indexes {
		q := db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.columns...).
			IfNotExists()
		if ix.unique {
			q = q.Unique()
		}
		if ix.where != "" {
			q = q.Where(ix.where)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", ix.name, err)
		}
	}
	return nil
}
