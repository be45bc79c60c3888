package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ShowtimeStatus string

const (
	ShowtimeActive    ShowtimeStatus = "ACTIVE"
	ShowtimeHousefull ShowtimeStatus = "HOUSEFULL"
	ShowtimeCancelled ShowtimeStatus = "CANCELLED"
	ShowtimeCompleted ShowtimeStatus = "COMPLETED"
)

// IsTerminal reports whether the screening no longer accepts any inventory change.
func (s ShowtimeStatus) IsTerminal() bool {
	return s == ShowtimeCancelled || s == ShowtimeCompleted
}

// IsLive reports whether the screening still occupies its screen slot.
func (s ShowtimeStatus) IsLive() bool {
	return s == ShowtimeActive || s == ShowtimeHousefull
}

func (s ShowtimeStatus) CanTransitionTo(next ShowtimeStatus) bool {
	switch s {
	case ShowtimeActive:
		return next == ShowtimeHousefull || next == ShowtimeCancelled || next == ShowtimeCompleted
	case ShowtimeHousefull:
		return next == ShowtimeActive || next == ShowtimeCancelled || next == ShowtimeCompleted
	default:
		return false
	}
}

type ShowType string

const (
	ShowTypeRegular2D  ShowType = "REGULAR_2D"
	ShowTypeIMAX2D     ShowType = "IMAX_2D"
	ShowTypeRegular3D  ShowType = "REGULAR_3D"
	ShowTypeIMAX3D     ShowType = "IMAX_3D"
	ShowTypeDolbyAtmos ShowType = "DOLBY_ATMOS"
)

type Showtime struct {
	bun.BaseModel `bun:"table:showtimes"`

	ID             string         `bun:"id,pk" json:"id"`
	MovieID        string         `bun:"movie_id,notnull" json:"movie_id"`
	TheaterID      string         `bun:"theater_id,notnull" json:"theater_id"`
	ScreenNumber   int            `bun:"screen_number,notnull" json:"screen_number"`
	ShowType       ShowType       `bun:"show_type,notnull" json:"show_type"`
	StartTime      time.Time      `bun:"start_time,notnull" json:"start_time"`
	EndTime        time.Time      `bun:"end_time,notnull" json:"end_time"`
	TotalSeats     int            `bun:"total_seats,notnull" json:"total_seats"`
	AvailableSeats int            `bun:"available_seats,notnull" json:"available_seats"`
	Price          float64        `bun:"price,notnull" json:"price"`
	Status         ShowtimeStatus `bun:"status,notnull" json:"status"`
	CreatedAt      time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

type CreateShowtimeRequest struct {
	MovieID      string    `json:"movie_id" validate:"required,notblank"`
	TheaterID    string    `json:"theater_id" validate:"required,notblank"`
	ScreenNumber int       `json:"screen_number" validate:"required,gt=0"`
	ShowType     ShowType  `json:"show_type" validate:"omitempty,oneof=REGULAR_2D IMAX_2D REGULAR_3D IMAX_3D DOLBY_ATMOS"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	TotalSeats   int       `json:"total_seats" validate:"required,gt=0"`
	Price        float64   `json:"price" validate:"gte=0"`
}

// Validate defaults ShowType to REGULAR_2D.
func (r *CreateShowtimeRequest) Validate() error {
	if err := checkTags(r); err != nil {
		return err
	}
	if r.ShowType == "" {
		r.ShowType = ShowTypeRegular2D
	}
	return nil
}

// UpdateShowtimeRequest replaces the schedule, screen and capacity of a
// showtime. An empty ShowType keeps the current one.
type UpdateShowtimeRequest struct {
	ScreenNumber int       `json:"screen_number" validate:"required,gt=0"`
	ShowType     ShowType  `json:"show_type" validate:"omitempty,oneof=REGULAR_2D IMAX_2D REGULAR_3D IMAX_3D DOLBY_ATMOS"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	TotalSeats   int       `json:"total_seats" validate:"required,gt=0"`
	Price        float64   `json:"price" validate:"gte=0"`
}

func (r *UpdateShowtimeRequest) Validate() error {
	return checkTags(r)
}

// Reschedules reports whether the request moves st to a different window.
func (r UpdateShowtimeRequest) Reschedules(st *Showtime) bool {
	return !r.StartTime.Equal(st.StartTime) || !r.EndTime.Equal(st.EndTime)
}

// ShowtimeFilter narrows ListShowtimes. Zero values are ignored.
type ShowtimeFilter struct {
	MovieID      string
	TheaterID    string
	ScreenNumber int
	ShowType     ShowType
	Status       ShowtimeStatus
	From         time.Time
	To           time.Time
	MinAvailable int
	Limit        int
	Offset       int
}
