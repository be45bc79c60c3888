package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLoggerWritesCategoryAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf)

	l.Info("booking", "created BKG-1")
	l.LogSweep("expire-bookings", 3, 12*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "[BOOKING")
	assert.Contains(t, out, "created BKG-1")
	assert.Contains(t, out, "[expire-bookings] 3 records transitioned")
	assert.Contains(t, out, "logger_test.go")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("X", "ignored") })
}
