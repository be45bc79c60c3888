package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ms-moviebooking/internal/models"
)

func TestGenerateBookingReference(t *testing.T) {
	now := time.Date(2026, 7, 4, 18, 30, 5, 0, time.UTC)
	ref := GenerateBookingReference(now)
	assert.Regexp(t, regexp.MustCompile(`^BKG-20260704183005-[0-9A-F]{6}$`), ref)
	assert.NotEqual(t, ref, GenerateBookingReference(now))
}

func TestGenerateTicketNumberAndBarcode(t *testing.T) {
	now := time.Date(2026, 7, 4, 18, 30, 5, 0, time.UTC)
	number := GenerateTicketNumber(now)
	assert.Regexp(t, regexp.MustCompile(`^TKT-20260704183005-[0-9A-F]{8}$`), number)
	assert.Regexp(t, regexp.MustCompile(`^BCTKT20260704183005[0-9A-F]{8}$`), GenerateBarcode(number))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("booking x: %w", models.ErrNotFound), http.StatusNotFound},
		{models.Invalid("bad"), http.StatusBadRequest},
		{models.ErrConflict, http.StatusConflict},
		{models.ErrInsufficientInventory, http.StatusConflict},
		{models.ErrSeatAlreadyBooked, http.StatusConflict},
		{models.ErrCancellationPolicy, http.StatusUnprocessableEntity},
		{models.ErrInvalidState, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		status, _ := StatusFor(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "Failed to cancel booking", models.ErrCancellationPolicy)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"cancellation_policy_violation"`)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?limit=20&bad=abc&from=2026-07-04T18:00:00Z&to=yesterday", nil)

	v, err := QueryInt(r, "limit", 50)
	assert.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = QueryInt(r, "offset", 7)
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = QueryInt(r, "bad", 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	from, err := QueryTime(r, "from")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC), from)

	_, err = QueryTime(r, "to")
	assert.ErrorIs(t, err, models.ErrValidation)
}
