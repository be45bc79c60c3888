package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: booking reference %s already exists", models.ErrConflict, b.BookingReference)
	}
	return err
}

// GetBooking resolves either the internal id or the booking reference.
func (d *DB) GetBooking(ctx context.Context, idOrReference string) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().
		Model(&b).
		Where("id = ? OR booking_reference = ?", idOrReference, idOrReference).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("booking %s: %w", idOrReference, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (d *DB) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	var out []models.Booking
	q := d.Bun.NewSelect().Model(&out)
	if f.CustomerEmail != "" {
		q = q.Where("customer_email = ?", f.CustomerEmail)
	}
	if f.CustomerPhone != "" {
		q = q.Where("customer_phone = ?", f.CustomerPhone)
	}
	if f.MovieID != "" {
		q = q.Where("movie_id = ?", f.MovieID)
	}
	if f.TheaterID != "" {
		q = q.Where("theater_id = ?", f.TheaterID)
	}
	if f.ShowtimeID != "" {
		q = q.Where("showtime_id = ?", f.ShowtimeID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if !f.BookedFrom.IsZero() {
		q = q.Where("booking_date >= ?", f.BookedFrom)
	}
	if !f.BookedTo.IsZero() {
		q = q.Where("booking_date <= ?", f.BookedTo)
	}
	if !f.ShowFrom.IsZero() {
		q = q.Where("show_date_time >= ?", f.ShowFrom)
	}
	if !f.ShowTo.IsZero() {
		q = q.Where("show_date_time <= ?", f.ShowTo)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	err := q.Order("booking_date DESC").Limit(limit).Offset(f.Offset).Scan(ctx)
	return out, err
}

// Confirm settles a PENDING booking whose payment has not completed yet.
func (d *DB) Confirm(ctx context.Context, id, paymentID string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingConfirmed).
		Set("payment_status = ?", models.PaymentCompleted).
		Set("payment_id = ?", paymentID).
		Set("payment_date = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Where("payment_status IN (?)", bun.In([]models.PaymentStatus{models.PaymentPending, models.PaymentFailed})).
		Exec(ctx)
	return affected(res, err)
}

// Cancel moves a CONFIRMED booking to CANCELLED.
func (d *DB) Cancel(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingCancelled).
		Set("cancellation_reason = ?", reason).
		Set("cancellation_date = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.BookingConfirmed).
		Exec(ctx)
	return affected(res, err)
}

// Abort cancels a PENDING booking whose reservation could not be completed.
func (d *DB) Abort(ctx context.Context, id, reason string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingCancelled).
		Set("payment_status = ?", models.PaymentFailed).
		Set("cancellation_reason = ?", reason).
		Set("cancellation_date = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Exec(ctx)
	return affected(res, err)
}

func (d *DB) MarkPaymentFailed(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_status = ?", models.PaymentFailed).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Where("payment_status = ?", models.PaymentPending).
		Exec(ctx)
	return affected(res, err)
}

// Refund touches only the payment axis.
func (d *DB) Refund(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_status = ?", models.PaymentRefunded).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("payment_status IN (?)", bun.In([]models.PaymentStatus{models.PaymentCompleted, models.PaymentPartialRefund})).
		Exec(ctx)
	return affected(res, err)
}

func (d *DB) UpdateCustomer(ctx context.Context, id string, req models.UpdateCustomerRequest, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("customer_name = ?", req.CustomerName).
		Set("customer_email = ?", req.CustomerEmail).
		Set("customer_phone = ?", req.CustomerPhone).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err)
}

// ExpireCandidates lists PENDING bookings made before cutoff.
func (d *DB) ExpireCandidates(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var out []models.Booking
	err := d.Bun.NewSelect().
		Model(&out).
		Where("status = ?", models.BookingPending).
		Where("booking_date < ?", cutoff).
		Order("booking_date ASC").
		Scan(ctx)
	return out, err
}

// Expire moves one booking to EXPIRED if it is still PENDING.
func (d *DB) Expire(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("status = ?", models.BookingExpired).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.BookingPending).
		Exec(ctx)
	return affected(res, err)
}

// MarkSeatsHeld records that n showtime seats are reserved for the booking.
// It only succeeds while the booking holds none.
func (d *DB) MarkSeatsHeld(ctx context.Context, id string, n int, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("seats_held = ?", n).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("seats_held = 0").
		Exec(ctx)
	return affected(res, err)
}

// ClaimHeldSeats zeroes the booking's held seat count and returns what it was.
// Of two concurrent claims only one sees a non-zero count.
func (d *DB) ClaimHeldSeats(ctx context.Context, id string, now time.Time) (int, error) {
	var held int
	err := d.Bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("seats_held").
		Where("id = ?", id).
		Scan(ctx, &held)
	if database.IsNoRows(err) {
		return 0, fmt.Errorf("booking %s: %w", id, models.ErrNotFound)
	}
	if err != nil || held == 0 {
		return 0, err
	}
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("seats_held = 0").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("seats_held = ?", held).
		Exec(ctx)
	ok, err := affected(res, err)
	if err != nil || !ok {
		return 0, err
	}
	return held, nil
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
