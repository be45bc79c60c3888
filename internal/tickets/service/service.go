package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ms-moviebooking/internal/clock"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
	qr "ms-moviebooking/internal/tickets/qr_genrator"
	"ms-moviebooking/internal/utils"
)

type TicketDBLayer interface {
	IssueTickets(ctx context.Context, tickets []*models.Ticket) error
	HeldSeats(ctx context.Context, showtimeID string, labels []string) ([]string, error)
	GetTicket(ctx context.Context, idOrNumber string) (*models.Ticket, error)
	ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error)
	MarkUsed(ctx context.Context, id string, now time.Time) (bool, error)
	Transition(ctx context.Context, id string, from []models.TicketStatus, to models.TicketStatus, now time.Time) (bool, error)
	TransitionByBooking(ctx context.Context, bookingID string, from []models.TicketStatus, to models.TicketStatus, now time.Time) (int, error)
	ExpireTickets(ctx context.Context, now time.Time) (int, error)
	CountActiveByShowtime(ctx context.Context, showtimeID string) (int, error)
	RevenueByMovie(ctx context.Context, movieID string) (float64, error)
	CountActiveByMovie(ctx context.Context, movieID string) (int, error)
	CountActiveByTheater(ctx context.Context, theaterID string) (int, error)
	RevenueByTheater(ctx context.Context, theaterID string) (float64, error)
}

type TicketService struct {
	DB     TicketDBLayer
	QR     *qr.QRGenerator
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewTicketService(db TicketDBLayer, qrGen *qr.QRGenerator, clk clock.Clock, log *logger.Logger) *TicketService {
	return &TicketService{DB: db, QR: qrGen, Clock: clk, Logger: log}
}

// IsSeatAvailable is true when no seat-holding ticket exists for the seat.
func (s *TicketService) IsSeatAvailable(ctx context.Context, showtimeID, seatLabel string) (bool, error) {
	held, err := s.DB.HeldSeats(ctx, showtimeID, []string{seatLabel})
	if err != nil {
		return false, err
	}
	return len(held) == 0, nil
}

func (s *TicketService) CreateTicket(ctx context.Context, req models.TicketRequest) (*models.Ticket, error) {
	issued, err := s.CreateTickets(ctx, []models.TicketRequest{req})
	if err != nil {
		return nil, err
	}
	return &issued[0], nil
}

// CreateTickets issues one ticket per request, all or none.
func (s *TicketService) CreateTickets(ctx context.Context, reqs []models.TicketRequest) ([]models.Ticket, error) {
	if len(reqs) == 0 {
		return nil, models.Invalid("no seats to issue")
	}

	now := s.Clock.Now()
	seen := make(map[string]struct{}, len(reqs))
	batch := make([]*models.Ticket, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		if err := req.Validate(); err != nil {
			return nil, err
		}
		key := req.ShowtimeID + "/" + req.SeatLabel
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: seat %s appears twice in one batch", models.ErrSeatAlreadyBooked, req.SeatLabel)
		}
		seen[key] = struct{}{}

		ticket, err := s.newTicket(req, now)
		if err != nil {
			return nil, err
		}
		batch = append(batch, ticket)
	}

	if err := s.DB.IssueTickets(ctx, batch); err != nil {
		return nil, err
	}

	out := make([]models.Ticket, len(batch))
	for i, t := range batch {
		out[i] = *t
		s.Logger.LogTicket("ISSUED", t.TicketNumber, fmt.Sprintf("booking=%s seat=%s", t.BookingID, t.SeatLabel))
	}
	return out, nil
}

func (s *TicketService) newTicket(req models.TicketRequest, now time.Time) (*models.Ticket, error) {
	t := &models.Ticket{
		ID:            uuid.NewString(),
		TicketNumber:  utils.GenerateTicketNumber(now),
		BookingID:     req.BookingID,
		ShowtimeID:    req.ShowtimeID,
		MovieID:       req.MovieID,
		TheaterID:     req.TheaterID,
		SeatLabel:     req.SeatLabel,
		SeatType:      req.SeatType,
		Price:         req.Price,
		Status:        models.TicketActive,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ShowDateTime:  req.ShowDateTime.UTC(),
		ValidUntil:    req.ShowDateTime.UTC(),
		IssuedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.Barcode = utils.GenerateBarcode(t.TicketNumber)
	token, err := s.QR.GenerateToken(t)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	t.QRCode = token
	return t, nil
}

func (s *TicketService) GetTicket(ctx context.Context, idOrNumber string) (*models.Ticket, error) {
	return s.DB.GetTicket(ctx, idOrNumber)
}

func (s *TicketService) ListTicketsByBooking(ctx context.Context, bookingID string) ([]models.Ticket, error) {
	return s.DB.ListTickets(ctx, models.TicketFilter{BookingID: bookingID})
}

func (s *TicketService) ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	return s.DB.ListTickets(ctx, f)
}

// MarkUsed admits a ticket at the gate.
func (s *TicketService) MarkUsed(ctx context.Context, idOrNumber string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if !ticket.IsValidForEntry(now) {
		return nil, models.Invalid("ticket %s is not valid for entry (status %s, valid until %s)",
			ticket.TicketNumber, ticket.Status, ticket.ValidUntil.Format(time.RFC3339))
	}

	ok, err := s.DB.MarkUsed(ctx, ticket.ID, now)
	if err != nil {
		return nil, fmt.Errorf("mark ticket %s used: %w", ticket.TicketNumber, err)
	}
	if !ok {
		return nil, models.Invalid("ticket %s was already admitted or changed", ticket.TicketNumber)
	}
	ticket.Status = models.TicketUsed
	ticket.UsedAt = now
	ticket.UpdatedAt = now
	s.Logger.LogTicket("USED", ticket.TicketNumber, "admitted")
	return ticket, nil
}

// CancelTicket cancels an ACTIVE ticket. Cancelling a cancelled ticket is a no-op.
func (s *TicketService) CancelTicket(ctx context.Context, idOrNumber string) (*models.Ticket, error) {
	return s.transition(ctx, idOrNumber, models.TicketCancelled)
}

// RefundTicket refunds a ticket in any state but REFUNDED, which is a no-op.
func (s *TicketService) RefundTicket(ctx context.Context, idOrNumber string) (*models.Ticket, error) {
	return s.transition(ctx, idOrNumber, models.TicketRefunded)
}

func (s *TicketService) transition(ctx context.Context, idOrNumber string, to models.TicketStatus) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if ticket.Status == to {
		return ticket, nil
	}
	if !ticket.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: ticket %s is %s, cannot move to %s", models.ErrInvalidState, ticket.TicketNumber, ticket.Status, to)
	}

	now := s.Clock.Now()
	ok, err := s.DB.Transition(ctx, ticket.ID, []models.TicketStatus{ticket.Status}, to, now)
	if err != nil {
		return nil, fmt.Errorf("move ticket %s to %s: %w", ticket.TicketNumber, to, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %s changed concurrently", models.ErrInvalidState, ticket.TicketNumber)
	}
	ticket.Status = to
	ticket.UpdatedAt = now
	s.Logger.LogTicket(string(to), ticket.TicketNumber, "status changed")
	return ticket, nil
}

// CancelTicketsForBooking cancels every ACTIVE ticket of a booking.
func (s *TicketService) CancelTicketsForBooking(ctx context.Context, bookingID string) (int, error) {
	return s.DB.TransitionByBooking(ctx, bookingID,
		[]models.TicketStatus{models.TicketActive}, models.TicketCancelled, s.Clock.Now())
}

// RefundTicketsForBooking refunds every ticket of a booking that is not yet refunded.
func (s *TicketService) RefundTicketsForBooking(ctx context.Context, bookingID string) (int, error) {
	return s.DB.TransitionByBooking(ctx, bookingID,
		[]models.TicketStatus{models.TicketActive, models.TicketUsed, models.TicketCancelled, models.TicketExpired},
		models.TicketRefunded, s.Clock.Now())
}

// ValidateTicket answers whether a ticket may enter now without changing it.
func (s *TicketService) ValidateTicket(ctx context.Context, idOrNumber string) (*models.TicketValidation, error) {
	ticket, err := s.DB.GetTicket(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	return s.validation(ticket), nil
}

// ValidateEntryToken opens a scanned QR token and validates the ticket it names.
func (s *TicketService) ValidateEntryToken(ctx context.Context, token string) (*models.TicketValidation, error) {
	payload, err := s.QR.DecryptQRData(token)
	if err != nil {
		return nil, models.Invalid("%v", err)
	}
	ticket, err := s.DB.GetTicket(ctx, payload.TicketNumber)
	if err != nil {
		return nil, err
	}
	v := s.validation(ticket)
	if ticket.QRCode != token {
		v.Valid = false
		v.Reason = "token superseded"
	}
	return v, nil
}

func (s *TicketService) validation(ticket *models.Ticket) *models.TicketValidation {
	now := s.Clock.Now()
	v := &models.TicketValidation{
		TicketNumber: ticket.TicketNumber,
		Status:       ticket.Status,
		Valid:        ticket.IsValidForEntry(now),
	}
	switch {
	case v.Valid:
	case ticket.Status != models.TicketActive:
		v.Reason = "ticket is " + string(ticket.Status)
	default:
		v.Reason = "show has started"
	}
	return v
}

// ExpireOldTickets moves ACTIVE tickets past their validity to EXPIRED.
func (s *TicketService) ExpireOldTickets(ctx context.Context) (int, error) {
	return s.DB.ExpireTickets(ctx, s.Clock.Now())
}
