package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-moviebooking/internal/models"
)

// DB stores the saga step log.
type DB struct {
	Bun bun.IDB
}

func (d *DB) InsertStep(ctx context.Context, step *models.SagaStep) error {
	_, err := d.Bun.NewInsert().Model(step).Exec(ctx)
	return err
}

// ListSteps returns the steps recorded for a booking, oldest first.
func (d *DB) ListSteps(ctx context.Context, bookingID string) ([]models.SagaStep, error) {
	var steps []models.SagaStep
	err := d.Bun.NewSelect().
		Model(&steps).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Scan(ctx)
	return steps, err
}
