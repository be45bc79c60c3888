package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/models"
)

func scoped(q *bun.SelectQuery, scope models.StatsScope) *bun.SelectQuery {
	if scope.ShowtimeID != "" {
		q = q.Where("showtime_id = ?", scope.ShowtimeID)
	}
	if scope.MovieID != "" {
		q = q.Where("movie_id = ?", scope.MovieID)
	}
	if scope.TheaterID != "" {
		q = q.Where("theater_id = ?", scope.TheaterID)
	}
	return q
}

// Stats counts confirmed bookings and seats, and sums final amounts of
// completed payments within scope.
func (d *DB) Stats(ctx context.Context, scope models.StatsScope) (*models.BookingStats, error) {
	var stats models.BookingStats

	err := scoped(d.Bun.NewSelect().Model((*models.Booking)(nil)), scope).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(number_of_seats), 0)").
		Where("status = ?", models.BookingConfirmed).
		Scan(ctx, &stats.ConfirmedBookings, &stats.SeatsBooked)
	if err != nil {
		return nil, err
	}

	err = scoped(d.Bun.NewSelect().Model((*models.Booking)(nil)), scope).
		ColumnExpr("COALESCE(SUM(final_amount), 0)").
		Where("payment_status = ?", models.PaymentCompleted).
		Scan(ctx, &stats.Revenue)
	if err != nil {
		return nil, err
	}
	stats.Revenue = models.RoundCents(stats.Revenue)
	return &stats, nil
}
