package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

const referenceTimeLayout = "20060102150405"

// GenerateBookingReference returns BKG-<yyyyMMddHHmmss>-<6 upper hex chars>.
func GenerateBookingReference(now time.Time) string {
	return "BKG-" + now.UTC().Format(referenceTimeLayout) + "-" + randomUpper(6)
}

// GenerateTicketNumber returns TKT-<yyyyMMddHHmmss>-<8 upper hex chars>.
func GenerateTicketNumber(now time.Time) string {
	return "TKT-" + now.UTC().Format(referenceTimeLayout) + "-" + randomUpper(8)
}

// GenerateBarcode derives the printable barcode value from a ticket number.
func GenerateBarcode(ticketNumber string) string {
	return "BC" + strings.ReplaceAll(ticketNumber, "-", "")
}

func randomUpper(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return strings.ToUpper(hex.EncodeToString(buf))[:n]
}
