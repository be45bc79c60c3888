package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string    `json:"name" validate:"required,notblank"`
	Email string    `json:"email" validate:"required,email"`
	Seats []string  `json:"seats" validate:"required,unique,dive,notblank"`
	Kind  string    `json:"kind" validate:"omitempty,oneof=A B"`
	Price float64   `json:"price" validate:"gte=0"`
	Start time.Time `json:"start" validate:"required"`
}

func validSample() sample {
	return sample{Name: "Ana", Email: "ana@example.com", Seats: []string{"A1", "A2"}, Start: time.Now()}
}

func TestValidateAcceptsValidStruct(t *testing.T) {
	assert.Nil(t, Validate(validSample()))
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	s := validSample()
	s.Name = "   "
	s.Email = "not-an-email"
	s.Seats = []string{"A1", "A1"}
	s.Kind = "C"
	s.Price = -1
	s.Start = time.Time{}

	errs := Validate(s)
	assert.Equal(t, map[string]string{
		"name":  "notblank",
		"email": "email",
		"seats": "unique",
		"kind":  "oneof=A B",
		"price": "gte=0",
		"start": "required",
	}, errs)
}

func TestValidateDivesIntoSlices(t *testing.T) {
	s := validSample()
	s.Seats = []string{"A1", " "}
	assert.Equal(t, map[string]string{"seats[1]": "notblank"}, Validate(s))
}

func TestDescribeIsSorted(t *testing.T) {
	got := Describe(map[string]string{"b": "required", "a": "email"})
	assert.Equal(t, "a: email, b: required", got)
}
