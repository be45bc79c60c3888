package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ms-moviebooking/internal/models"
)

const tokenPrefix = "QR-"

var ErrInvalidToken = errors.New("invalid entry token")

// Payload is the content sealed inside a ticket's QR token.
type Payload struct {
	TicketNumber string    `json:"n"`
	ShowtimeID   string    `json:"s"`
	SeatLabel    string    `json:"l"`
	ValidUntil   time.Time `json:"v"`
}

// QRGenerator produces opaque entry tokens. Tokens are AES-GCM sealed so a
// gate scanner can trust the ticket number it reads back.
type QRGenerator struct {
	aead cipher.AEAD
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		panic(fmt.Sprintf("qr: aes cipher: %v", err))
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("qr: gcm: %v", err))
	}
	return &QRGenerator{aead: aead}
}

func (q *QRGenerator) GenerateToken(ticket *models.Ticket) (string, error) {
	data, err := json.Marshal(Payload{
		TicketNumber: ticket.TicketNumber,
		ShowtimeID:   ticket.ShowtimeID,
		SeatLabel:    ticket.SeatLabel,
		ValidUntil:   ticket.ValidUntil.UTC(),
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, q.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := q.aead.Seal(nonce, nonce, data, nil)
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptQRData opens a token produced by GenerateToken.
func (q *QRGenerator) DecryptQRData(token string) (*Payload, error) {
	raw, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return nil, ErrInvalidToken
	}
	sealed, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(sealed) < q.aead.NonceSize() {
		return nil, ErrInvalidToken
	}
	nonce, ciphertext := sealed[:q.aead.NonceSize()], sealed[q.aead.NonceSize():]
	data, err := q.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrInvalidToken
	}
	return &p, nil
}
