package models

import (
	"errors"
	"fmt"

	"ms-moviebooking/internal/validator"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrInsufficientInventory = errors.New("insufficient seats available")
	ErrSeatAlreadyBooked     = errors.New("seat already booked")
	ErrCancellationPolicy    = errors.New("cancellation policy violation")
	ErrInvalidState          = errors.New("invalid state transition")
)

// Invalid wraps ErrValidation with a field-level message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// checkTags runs the struct's validate tags and reports failures as ErrValidation.
func checkTags(v any) error {
	if errs := validator.Validate(v); len(errs) > 0 {
		return Invalid("%s", validator.Describe(errs))
	}
	return nil
}
