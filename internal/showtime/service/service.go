package showtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

type ShowtimeDBLayer interface {
	CreateIfFree(ctx context.Context, st *models.Showtime) (*models.Showtime, error)
	UpdateIfFree(ctx context.Context, cur *models.Showtime, upd models.UpdateShowtimeRequest, unsoldOnly bool, now time.Time) (*models.Showtime, bool, error)
	GetShowtimeByID(ctx context.Context, id string) (*models.Showtime, error)
	ReserveSeats(ctx context.Context, id string, n int, now time.Time) (bool, error)
	ReleaseSeats(ctx context.Context, id string, n int, now time.Time) (bool, error)
	TransitionStatus(ctx context.Context, id string, to models.ShowtimeStatus, now time.Time) (bool, error)
	ListShowtimes(ctx context.Context, f models.ShowtimeFilter) ([]models.Showtime, error)
	CountActiveByMovie(ctx context.Context, movieID string) (int, error)
	CountActiveByTheater(ctx context.Context, theaterID string) (int, error)
}

// ShowtimeService owns the seat counter and screening status of every showtime.
type ShowtimeService struct {
	DB     ShowtimeDBLayer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewShowtimeService(db ShowtimeDBLayer, clk clock.Clock, log *logger.Logger) *ShowtimeService {
	return &ShowtimeService{DB: db, Clock: clk, Logger: log}
}

func (s *ShowtimeService) CreateShowtime(ctx context.Context, req models.CreateShowtimeRequest) (*models.Showtime, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, end := req.StartTime.UTC(), req.EndTime.UTC()

	now := s.Clock.Now()
	st := &models.Showtime{
		ID:             uuid.NewString(),
		MovieID:        req.MovieID,
		TheaterID:      req.TheaterID,
		ScreenNumber:   req.ScreenNumber,
		ShowType:       req.ShowType,
		StartTime:      start,
		EndTime:        end,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		Price:          req.Price,
		Status:         models.ShowtimeActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	conflict, err := s.DB.CreateIfFree(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to create showtime: %w", err)
	}
	if conflict != nil {
		return nil, overlapError(conflict)
	}
	s.Logger.LogShowtime("CREATED", st.ID, fmt.Sprintf("movie=%s theater=%s seats=%d", st.MovieID, st.TheaterID, st.TotalSeats))
	return st, nil
}

func overlapError(st *models.Showtime) error {
	return fmt.Errorf("%w: showtime %s already scheduled for movie %s at theater %s from %s to %s",
		models.ErrConflict, st.ID, st.MovieID, st.TheaterID,
		st.StartTime.Format(time.RFC3339), st.EndTime.Format(time.RFC3339))
}

// UpdateShowtime reschedules or resizes an ACTIVE showtime. Seats already sold
// are kept, so total_seats cannot drop below them, and a showtime with sold
// seats keeps its time window because bookings carry the show time.
func (s *ShowtimeService) UpdateShowtime(ctx context.Context, id string, req models.UpdateShowtimeRequest) (*models.Showtime, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	cur, err := s.DB.GetShowtimeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cur.Status != models.ShowtimeActive {
		return nil, fmt.Errorf("%w: showtime %s is %s, only ACTIVE showtimes can be updated", models.ErrInvalidState, id, cur.Status)
	}
	req.StartTime, req.EndTime = req.StartTime.UTC(), req.EndTime.UTC()
	if req.ShowType == "" {
		req.ShowType = cur.ShowType
	}
	reschedules := req.Reschedules(cur)

	conflict, ok, err := s.DB.UpdateIfFree(ctx, cur, req, reschedules, s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("update showtime %s: %w", id, err)
	}
	if conflict != nil {
		return nil, overlapError(conflict)
	}
	latest, err := s.DB.GetShowtimeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		sold := latest.TotalSeats - latest.AvailableSeats
		switch {
		case latest.Status != models.ShowtimeActive:
			return nil, fmt.Errorf("%w: showtime %s is %s, only ACTIVE showtimes can be updated", models.ErrInvalidState, id, latest.Status)
		case sold > req.TotalSeats:
			return nil, fmt.Errorf("%w: showtime %s has %d seats sold, cannot shrink to %d", models.ErrConflict, id, sold, req.TotalSeats)
		default:
			return nil, fmt.Errorf("%w: showtime %s has %d seats sold and cannot be rescheduled", models.ErrInvalidState, id, sold)
		}
	}
	s.Logger.LogShowtime("UPDATED", id, fmt.Sprintf("start=%s seats=%d/%d", latest.StartTime.Format(time.RFC3339), latest.AvailableSeats, latest.TotalSeats))
	return latest, nil
}

func (s *ShowtimeService) GetShowtime(ctx context.Context, id string) (*models.Showtime, error) {
	return s.DB.GetShowtimeByID(ctx, id)
}

func (s *ShowtimeService) ListShowtimes(ctx context.Context, f models.ShowtimeFilter) ([]models.Showtime, error) {
	return s.DB.ListShowtimes(ctx, f)
}

func (s *ShowtimeService) CountActiveByMovie(ctx context.Context, movieID string) (int, error) {
	return s.DB.CountActiveByMovie(ctx, movieID)
}

func (s *ShowtimeService) CountActiveByTheater(ctx context.Context, theaterID string) (int, error) {
	return s.DB.CountActiveByTheater(ctx, theaterID)
}

// ReserveSeats takes n seats from the showtime or fails without changing anything.
func (s *ShowtimeService) ReserveSeats(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return models.Invalid("seat count must be positive, got %d", n)
	}
	ok, err := s.DB.ReserveSeats(ctx, id, n, s.Clock.Now())
	if err != nil {
		return fmt.Errorf("reserve %d seats on showtime %s: %w", n, id, err)
	}
	if ok {
		s.Logger.Debug("SHOWTIME", fmt.Sprintf("reserved %d seats on %s", n, id))
		return nil
	}

	st, err := s.DB.GetShowtimeByID(ctx, id)
	if err != nil {
		return err
	}
	if st.Status.IsTerminal() {
		return fmt.Errorf("%w: showtime %s is %s", models.ErrInvalidState, id, st.Status)
	}
	return fmt.Errorf("%w: showtime %s has %d of %d requested seats", models.ErrInsufficientInventory, id, st.AvailableSeats, n)
}

// ReleaseSeats returns n seats, never exceeding the showtime's capacity.
func (s *ShowtimeService) ReleaseSeats(ctx context.Context, id string, n int) error {
	if n <= 0 {
		return models.Invalid("seat count must be positive, got %d", n)
	}
	ok, err := s.DB.ReleaseSeats(ctx, id, n, s.Clock.Now())
	if err != nil {
		return fmt.Errorf("release %d seats on showtime %s: %w", n, id, err)
	}
	if ok {
		s.Logger.Debug("SHOWTIME", fmt.Sprintf("released %d seats on %s", n, id))
		return nil
	}

	st, err := s.DB.GetShowtimeByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: showtime %s is %s", models.ErrInvalidState, id, st.Status)
}

func (s *ShowtimeService) CancelShowtime(ctx context.Context, id string) (*models.Showtime, error) {
	return s.transition(ctx, id, models.ShowtimeCancelled)
}

func (s *ShowtimeService) CompleteShowtime(ctx context.Context, id string) (*models.Showtime, error) {
	return s.transition(ctx, id, models.ShowtimeCompleted)
}

// MarkHousefull closes sales manually by zeroing the remaining seats.
func (s *ShowtimeService) MarkHousefull(ctx context.Context, id string) (*models.Showtime, error) {
	return s.transition(ctx, id, models.ShowtimeHousefull)
}

func (s *ShowtimeService) transition(ctx context.Context, id string, to models.ShowtimeStatus) (*models.Showtime, error) {
	ok, err := s.DB.TransitionStatus(ctx, id, to, s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("move showtime %s to %s: %w", id, to, err)
	}
	st, getErr := s.DB.GetShowtimeByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if !ok {
		return nil, fmt.Errorf("%w: showtime %s is %s, cannot move to %s", models.ErrInvalidState, id, st.Status, to)
	}
	s.Logger.LogShowtime(string(to), id, "status changed")
	return st, nil
}
