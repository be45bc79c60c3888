package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

type DB struct {
	Bun bun.IDB
}

// RunInTx runs fn against a copy of DB bound to a single transaction.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *DB) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &DB{Bun: tx})
	})
}

// IssueTickets inserts the whole batch in one transaction. Any seat that
// already has a seat-holding ticket fails the batch with ErrSeatAlreadyBooked.
// The pre-check gives a readable error; the live seat index decides races.
func (d *DB) IssueTickets(ctx context.Context, tickets []*models.Ticket) error {
	byShowtime := make(map[string][]string)
	for _, t := range tickets {
		byShowtime[t.ShowtimeID] = append(byShowtime[t.ShowtimeID], t.SeatLabel)
	}

	return d.RunInTx(ctx, func(ctx context.Context, tx *DB) error {
		for showtimeID, labels := range byShowtime {
			held, err := tx.HeldSeats(ctx, showtimeID, labels)
			if err != nil {
				return fmt.Errorf("check seats: %w", err)
			}
			if len(held) > 0 {
				return fmt.Errorf("%w: showtime %s seats %s", models.ErrSeatAlreadyBooked, showtimeID, strings.Join(held, ","))
			}
		}
		if err := tx.InsertTickets(ctx, tickets); err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %v", models.ErrSeatAlreadyBooked, err)
			}
			return fmt.Errorf("insert tickets: %w", err)
		}
		return nil
	})
}

func (d *DB) InsertTickets(ctx context.Context, tickets []*models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&tickets).Exec(ctx)
	return err
}

// HeldSeats returns which of labels already carry a seat-holding ticket for the showtime.
func (d *DB) HeldSeats(ctx context.Context, showtimeID string, labels []string) ([]string, error) {
	var held []string
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("seat_label").
		Where("showtime_id = ?", showtimeID).
		Where("seat_label IN (?)", bun.In(labels)).
		Where("status NOT IN (?)", bun.In(models.ReleasedTicketStatuses)).
		Scan(ctx, &held)
	return held, err
}

// GetTicket resolves either the internal id or the ticket number.
func (d *DB) GetTicket(ctx context.Context, idOrNumber string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ? OR ticket_number = ?", idOrNumber, idOrNumber).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("ticket %s: %w", idOrNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	var out []models.Ticket
	q := d.Bun.NewSelect().Model(&out)
	if f.BookingID != "" {
		q = q.Where("booking_id = ?", f.BookingID)
	}
	if f.ShowtimeID != "" {
		q = q.Where("showtime_id = ?", f.ShowtimeID)
	}
	if f.MovieID != "" {
		q = q.Where("movie_id = ?", f.MovieID)
	}
	if f.TheaterID != "" {
		q = q.Where("theater_id = ?", f.TheaterID)
	}
	if f.CustomerEmail != "" {
		q = q.Where("customer_email = ?", f.CustomerEmail)
	}
	if f.CustomerPhone != "" {
		q = q.Where("customer_phone = ?", f.CustomerPhone)
	}
	if f.SeatType != "" {
		q = q.Where("seat_type = ?", f.SeatType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.ShowFrom.IsZero() {
		q = q.Where("show_date_time >= ?", f.ShowFrom)
	}
	if !f.ShowTo.IsZero() {
		q = q.Where("show_date_time <= ?", f.ShowTo)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	err := q.Order("seat_label ASC").Scan(ctx)
	return out, err
}

// MarkUsed flips an ACTIVE ticket while now is strictly before valid_until.
func (d *DB) MarkUsed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketUsed).
		Set("used_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.TicketActive).
		Where("valid_until > ?", now).
		Exec(ctx)
	return affected(res, err)
}

// Transition moves one ticket to status when its current status is in from.
func (d *DB) Transition(ctx context.Context, id string, from []models.TicketStatus, to models.TicketStatus, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	return affected(res, err)
}

// TransitionByBooking moves every ticket of a booking whose status is in from.
func (d *DB) TransitionByBooking(ctx context.Context, bookingID string, from []models.TicketStatus, to models.TicketStatus, now time.Time) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("booking_id = ?", bookingID).
		Where("status IN (?)", bun.In(from)).
		Exec(ctx)
	return rowCount(res, err)
}

// ExpireTickets marks every ACTIVE ticket whose validity ended at or before now.
func (d *DB) ExpireTickets(ctx context.Context, now time.Time) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketExpired).
		Set("updated_at = ?", now).
		Where("status = ?", models.TicketActive).
		Where("valid_until <= ?", now).
		Exec(ctx)
	return rowCount(res, err)
}

func affected(res sql.Result, err error) (bool, error) {
	n, err := rowCount(res, err)
	return n > 0, err
}

func rowCount(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
