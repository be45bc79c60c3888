package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/models"
)

var soldStatuses = []models.TicketStatus{models.TicketActive, models.TicketUsed}

// CountActiveByShowtime counts ACTIVE tickets for a showtime.
func (d *DB) CountActiveByShowtime(ctx context.Context, showtimeID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("showtime_id = ?", showtimeID).
		Where("status = ?", models.TicketActive).
		Count(ctx)
}

// RevenueByMovie sums the price of ACTIVE and USED tickets for a movie.
func (d *DB) RevenueByMovie(ctx context.Context, movieID string) (float64, error) {
	var total float64
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("COALESCE(SUM(price), 0)").
		Where("movie_id = ?", movieID).
		Where("status IN (?)", bun.In(soldStatuses)).
		Scan(ctx, &total)
	return total, err
}

// CountActiveByMovie counts ACTIVE tickets across every showtime of a movie.
func (d *DB) CountActiveByMovie(ctx context.Context, movieID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("movie_id = ?", movieID).
		Where("status = ?", models.TicketActive).
		Count(ctx)
}

func (d *DB) CountActiveByTheater(ctx context.Context, theaterID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("theater_id = ?", theaterID).
		Where("status = ?", models.TicketActive).
		Count(ctx)
}

// RevenueByTheater sums the price of ACTIVE and USED tickets for a theater.
func (d *DB) RevenueByTheater(ctx context.Context, theaterID string) (float64, error) {
	var total float64
	err := d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("COALESCE(SUM(price), 0)").
		Where("theater_id = ?", theaterID).
		Where("status IN (?)", bun.In(soldStatuses)).
		Scan(ctx, &total)
	return total, err
}
