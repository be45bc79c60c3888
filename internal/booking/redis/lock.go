package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-moviebooking/internal/logger"
)

const defaultLockTTL = 5 * time.Minute

// unlockScript deletes the key only while it is still owned by the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SeatLock is a short-lived per-seat lock in Redis. It keeps concurrent
// reservations for the same seats from racing into the database.
type SeatLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewSeatLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *SeatLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &SeatLock{Client: client, TTL: ttl, Logger: log}
}

func seatKey(showtimeID, label string) string {
	return fmt.Sprintf("seat_lock:%s:%s", showtimeID, label)
}

// IsSeatLocked reports whether another reservation currently holds the seat.
func (r *SeatLock) IsSeatLocked(ctx context.Context, showtimeID, label string) (bool, error) {
	n, err := r.Client.Exists(ctx, seatKey(showtimeID, label)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LockedSeats returns the labels among labels that are locked by someone.
func (r *SeatLock) LockedSeats(ctx context.Context, showtimeID string, labels []string) ([]string, error) {
	var locked []string
	for _, label := range labels {
		held, err := r.IsSeatLocked(ctx, showtimeID, label)
		if err != nil {
			return nil, err
		}
		if held {
			locked = append(locked, label)
		}
	}
	return locked, nil
}

func (r *SeatLock) lockSeat(ctx context.Context, showtimeID, label, owner string) (bool, error) {
	return r.Client.SetNX(ctx, seatKey(showtimeID, label), owner, r.TTL).Result()
}

func (r *SeatLock) unlockSeat(ctx context.Context, showtimeID, label, owner string) error {
	err := unlockScript.Run(ctx, r.Client, []string{seatKey(showtimeID, label)}, owner).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// LockSeats takes every seat for owner or none of them.
func (r *SeatLock) LockSeats(ctx context.Context, showtimeID string, labels []string, owner string) (bool, error) {
	locked := make([]string, 0, len(labels))
	for _, label := range labels {
		ok, err := r.lockSeat(ctx, showtimeID, label, owner)
		if err != nil || !ok {
			for _, l := range locked {
				_ = r.unlockSeat(ctx, showtimeID, l, owner)
			}
			if err != nil {
				return false, fmt.Errorf("lock seat %s: %w", label, err)
			}
			r.Logger.Debug("REDIS", fmt.Sprintf("seat %s of showtime %s is held by another booking", label, showtimeID))
			return false, nil
		}
		locked = append(locked, label)
	}
	return true, nil
}

// UnlockSeats releases the seats owner holds. Seats held by others are untouched.
func (r *SeatLock) UnlockSeats(ctx context.Context, showtimeID string, labels []string, owner string) error {
	var firstErr error
	for _, label := range labels {
		if err := r.unlockSeat(ctx, showtimeID, label, owner); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
