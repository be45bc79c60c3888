package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) CreateShowtime(ctx context.Context, st *models.Showtime) error {
	_, err := d.Bun.NewInsert().Model(st).Exec(ctx)
	return err
}

func (d *DB) GetShowtimeByID(ctx context.Context, id string) (*models.Showtime, error) {
	var st models.Showtime
	err := d.Bun.NewSelect().
		Model(&st).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if database.IsNoRows(err) {
		return nil, fmt.Errorf("showtime %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// FindOverlapping returns live showtimes of the same movie and theater whose
// interval touches [start, end], leaving out excludeID.
func (d *DB) FindOverlapping(ctx context.Context, movieID, theaterID string, start, end time.Time, excludeID string) ([]models.Showtime, error) {
	var out []models.Showtime
	q := d.Bun.NewSelect().
		Model(&out).
		Where("movie_id = ?", movieID).
		Where("theater_id = ?", theaterID).
		Where("status IN (?)", bun.In([]models.ShowtimeStatus{models.ShowtimeActive, models.ShowtimeHousefull})).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("start_time BETWEEN ? AND ?", start, end).
				WhereOr("end_time BETWEEN ? AND ?", start, end).
				WhereOr("start_time <= ? AND end_time >= ?", start, end)
		})
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Scan(ctx)
	return out, err
}

// runInSlot runs fn in a transaction that owns the (movie, theater) schedule.
// Postgres takes a transaction-scoped advisory lock; sqlite already serializes
// writers on its single connection.
func (d *DB) runInSlot(ctx context.Context, movieID, theaterID string, fn func(ctx context.Context, tx *DB) error) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if tx.Dialect().Name() == dialect.PG {
			if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", movieID+"|"+theaterID).Exec(ctx); err != nil {
				return fmt.Errorf("lock schedule of %s at %s: %w", movieID, theaterID, err)
			}
		}
		return fn(ctx, &DB{Bun: tx})
	})
}

// CreateIfFree inserts st unless a live showtime of the same movie and theater
// overlaps it. The overlap check and the insert share one transaction. On
// conflict nothing is written and the first overlapping showtime is returned.
func (d *DB) CreateIfFree(ctx context.Context, st *models.Showtime) (*models.Showtime, error) {
	var conflict *models.Showtime
	err := d.runInSlot(ctx, st.MovieID, st.TheaterID, func(ctx context.Context, tx *DB) error {
		overlapping, err := tx.FindOverlapping(ctx, st.MovieID, st.TheaterID, st.StartTime, st.EndTime, "")
		if err != nil {
			return fmt.Errorf("check showtime overlap: %w", err)
		}
		if len(overlapping) > 0 {
			conflict = &overlapping[0]
			return nil
		}
		return tx.CreateShowtime(ctx, st)
	})
	return conflict, err
}

// UpdateIfFree rewrites the schedule and capacity of the ACTIVE showtime cur
// unless another live showtime overlaps the new window. Seats already sold
// stay sold: available becomes total_seats minus sold, and the row is left
// alone when that would go negative. With unsoldOnly the row must have sold
// nothing. It returns the conflict, if any, and whether the row changed.
func (d *DB) UpdateIfFree(ctx context.Context, cur *models.Showtime, upd models.UpdateShowtimeRequest, unsoldOnly bool, now time.Time) (*models.Showtime, bool, error) {
	var (
		conflict *models.Showtime
		ok       bool
	)
	err := d.runInSlot(ctx, cur.MovieID, cur.TheaterID, func(ctx context.Context, tx *DB) error {
		overlapping, err := tx.FindOverlapping(ctx, cur.MovieID, cur.TheaterID, upd.StartTime, upd.EndTime, cur.ID)
		if err != nil {
			return fmt.Errorf("check showtime overlap: %w", err)
		}
		if len(overlapping) > 0 {
			conflict = &overlapping[0]
			return nil
		}
		q := tx.Bun.NewUpdate().
			Model((*models.Showtime)(nil)).
			Set("screen_number = ?", upd.ScreenNumber).
			Set("show_type = ?", upd.ShowType).
			Set("start_time = ?", upd.StartTime).
			Set("end_time = ?", upd.EndTime).
			Set("price = ?", upd.Price).
			Set("total_seats = ?", upd.TotalSeats).
			Set("available_seats = ? - (total_seats - available_seats)", upd.TotalSeats).
			Set("status = CASE WHEN ? - (total_seats - available_seats) = 0 THEN ? ELSE status END", upd.TotalSeats, models.ShowtimeHousefull).
			Set("updated_at = ?", now).
			Where("id = ?", cur.ID).
			Where("status = ?", models.ShowtimeActive).
			Where("total_seats - available_seats <= ?", upd.TotalSeats)
		if unsoldOnly {
			q = q.Where("available_seats = total_seats")
		}
		ok, err = affected(q.Exec(ctx))
		return err
	})
	return conflict, ok, err
}

// ReserveSeats decrements the counter in a single conditional statement and
// flips the showtime to HOUSEFULL when it reaches zero. It reports false when
// the showtime is missing, not ACTIVE, or short of seats.
func (d *DB) ReserveSeats(ctx context.Context, id string, n int, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Showtime)(nil)).
		Set("available_seats = available_seats - ?", n).
		Set("status = CASE WHEN available_seats - ? = 0 THEN ? ELSE status END", n, models.ShowtimeHousefull).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.ShowtimeActive).
		Where("available_seats >= ?", n).
		Exec(ctx)
	return affected(res, err)
}

// ReleaseSeats returns seats clamped to total_seats and reopens a HOUSEFULL showtime.
func (d *DB) ReleaseSeats(ctx context.Context, id string, n int, now time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Showtime)(nil)).
		Set("available_seats = CASE WHEN available_seats + ? > total_seats THEN total_seats ELSE available_seats + ? END", n, n).
		Set("status = ?", models.ShowtimeActive).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]models.ShowtimeStatus{models.ShowtimeActive, models.ShowtimeHousefull})).
		Exec(ctx)
	return affected(res, err)
}

// TransitionStatus moves a live showtime to status. HOUSEFULL also zeroes the counter.
func (d *DB) TransitionStatus(ctx context.Context, id string, to models.ShowtimeStatus, now time.Time) (bool, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Showtime)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status IN (?)", bun.In([]models.ShowtimeStatus{models.ShowtimeActive, models.ShowtimeHousefull}))
	if to == models.ShowtimeHousefull {
		q = q.Set("available_seats = 0")
	}
	res, err := q.Exec(ctx)
	return affected(res, err)
}

func (d *DB) ListShowtimes(ctx context.Context, f models.ShowtimeFilter) ([]models.Showtime, error) {
	var out []models.Showtime
	q := d.Bun.NewSelect().Model(&out)
	if f.MovieID != "" {
		q = q.Where("movie_id = ?", f.MovieID)
	}
	if f.TheaterID != "" {
		q = q.Where("theater_id = ?", f.TheaterID)
	}
	if f.ScreenNumber > 0 {
		q = q.Where("screen_number = ?", f.ScreenNumber)
	}
	if f.ShowType != "" {
		q = q.Where("show_type = ?", f.ShowType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("start_time >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("start_time <= ?", f.To)
	}
	if f.MinAvailable > 0 {
		q = q.Where("available_seats >= ?", f.MinAvailable)
	}
	err := q.Order("start_time ASC").
		Limit(pageSize(f.Limit)).
		Offset(f.Offset).
		Scan(ctx)
	return out, err
}

func (d *DB) CountActiveByMovie(ctx context.Context, movieID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Showtime)(nil)).
		Where("movie_id = ?", movieID).
		Where("status = ?", models.ShowtimeActive).
		Count(ctx)
}

func (d *DB) CountActiveByTheater(ctx context.Context, theaterID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Showtime)(nil)).
		Where("theater_id = ?", theaterID).
		Where("status = ?", models.ShowtimeActive).
		Count(ctx)
}

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
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
