// Package testutil builds in-memory sqlite databases with the full schema for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/models"
)

func NewDB(t testing.TB) *bun.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	if err := database.CreateSchema(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// InsertShowtime stores an ACTIVE showtime with the given capacity starting at start.
func InsertShowtime(t testing.TB, db bun.IDB, start time.Time, seats int) *models.Showtime {
	t.Helper()
	st := &models.Showtime{
		ID:             uuid.NewString(),
		MovieID:        "movie-" + uuid.NewString()[:8],
		TheaterID:      "theater-1",
		ScreenNumber:   1,
		ShowType:       models.ShowTypeRegular2D,
		StartTime:      start.UTC(),
		EndTime:        start.UTC().Add(2 * time.Hour),
		TotalSeats:     seats,
		AvailableSeats: seats,
		Price:          200,
		Status:         models.ShowtimeActive,
		CreatedAt:      start.UTC().Add(-48 * time.Hour),
		UpdatedAt:      start.UTC().Add(-48 * time.Hour),
	}
	if _, err := db.NewInsert().Model(st).Exec(context.Background()); err != nil {
		t.Fatalf("Failed to insert showtime: %v", err)
	}
	return st
}
