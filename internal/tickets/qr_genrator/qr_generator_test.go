package qr

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-moviebooking/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	gen := NewQRGenerator("secret")
	ticket := &models.Ticket{
		TicketNumber: "TKT-20260101120000-ABCDEF12",
		ShowtimeID:   "show-1",
		SeatLabel:    "A1",
		ValidUntil:   time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC),
	}

	token, err := gen.GenerateToken(ticket)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "QR-"))
	assert.NotContains(t, token, ticket.TicketNumber)

	payload, err := gen.DecryptQRData(token)
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketNumber, payload.TicketNumber)
	assert.Equal(t, "A1", payload.SeatLabel)
	assert.True(t, payload.ValidUntil.Equal(ticket.ValidUntil))

	again, err := gen.GenerateToken(ticket)
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}

func TestDecryptRejectsForeignTokens(t *testing.T) {
	token, err := NewQRGenerator("secret").GenerateToken(&models.Ticket{TicketNumber: "TKT-1"})
	require.NoError(t, err)

	_, err = NewQRGenerator("other-secret").DecryptQRData(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewQRGenerator("secret").DecryptQRData("QR-not-base64!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewQRGenerator("secret").DecryptQRData("TKT-1")
	assert.ErrorIs(t, err, ErrInvalidToken)

	tampered := []byte(token)
	i := len(tampered) / 2
	if tampered[i] == 'A' {
		tampered[i] = 'B'
	} else {
		tampered[i] = 'A'
	}
	_, err = NewQRGenerator("secret").DecryptQRData(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
