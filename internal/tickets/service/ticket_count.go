package tickets

import "context"

// CountActiveByShowtime returns how many ACTIVE tickets a showtime has.
func (s *TicketService) CountActiveByShowtime(ctx context.Context, showtimeID string) (int, error) {
	return s.DB.CountActiveByShowtime(ctx, showtimeID)
}

// RevenueByMovie sums ticket prices of sold (ACTIVE or USED) tickets for a movie.
func (s *TicketService) RevenueByMovie(ctx context.Context, movieID string) (float64, error) {
	return s.DB.RevenueByMovie(ctx, movieID)
}

func (s *TicketService) CountActiveByMovie(ctx context.Context, movieID string) (int, error) {
	return s.DB.CountActiveByMovie(ctx, movieID)
}

func (s *TicketService) CountActiveByTheater(ctx context.Context, theaterID string) (int, error) {
	return s.DB.CountActiveByTheater(ctx, theaterID)
}

// RevenueByTheater sums ticket prices of sold tickets across a theater's showtimes.
func (s *TicketService) RevenueByTheater(ctx context.Context, theaterID string) (float64, error) {
	return s.DB.RevenueByTheater(ctx, theaterID)
}
