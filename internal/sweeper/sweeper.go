// Package sweeper reclaims unpaid bookings and outdated tickets on a schedule.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/logger"
)

const (
	JobExpireBookings = "expire-bookings"
	JobExpireTickets  = "expire-tickets"
)

type BookingExpirer interface {
	ExpireBookings(ctx context.Context) (int, error)
}

type TicketExpirer interface {
	ExpireOldTickets(ctx context.Context) (int, error)
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) (int, error)
}

// Sweeper runs each job on its own ticker. Stop waits for running sweeps.
type Sweeper struct {
	jobs       []job
	runOnStart bool
	log        *logger.Logger

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func New(cfg config.SweeperConfig, bookings BookingExpirer, tickets TicketExpirer, log *logger.Logger) *Sweeper {
	return &Sweeper{
		jobs: []job{
			{name: JobExpireBookings, interval: cfg.BookingInterval, run: bookings.ExpireBookings},
			{name: JobExpireTickets, interval: cfg.TicketInterval, run: tickets.ExpireOldTickets},
		},
		runOnStart: cfg.RunOnStart,
		log:        log,
	}
}

// Start launches the tickers. It returns immediately; sweeping stops when ctx
// is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})

	for _, j := range s.jobs {
		if j.interval <= 0 {
			s.log.Warn("SWEEPER", fmt.Sprintf("%s disabled: interval %s", j.name, j.interval))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j, s.stop)
		s.log.Info("SWEEPER", fmt.Sprintf("%s scheduled every %s", j.name, j.interval))
	}
}

func (s *Sweeper) loop(ctx context.Context, j job, stop <-chan struct{}) {
	defer s.wg.Done()

	if s.runOnStart {
		s.sweep(ctx, j)
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(ctx, j)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweep detaches from ctx so a shutdown lets the running sweep finish.
func (s *Sweeper) sweep(ctx context.Context, j job) (int, error) {
	started := time.Now()
	n, err := j.run(context.WithoutCancel(ctx))
	if err != nil {
		s.log.Error("SWEEPER", fmt.Sprintf("%s failed: %v", j.name, err))
		return n, fmt.Errorf("%s: %w", j.name, err)
	}
	if n > 0 {
		s.log.LogSweep(j.name, n, time.Since(started))
	}
	return n, nil
}

// Stop halts the tickers and blocks until in-flight sweeps return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("SWEEPER", "stopped")
}

// RunOnce runs every job a single time, in order, and returns the counts by job name.
func (s *Sweeper) RunOnce(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(s.jobs))
	var errs []error
	for _, j := range s.jobs {
		n, err := s.sweep(ctx, j)
		counts[j.name] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return counts, errors.Join(errs...)
}
