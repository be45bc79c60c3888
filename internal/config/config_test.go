package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 0.18, cfg.Booking.TaxRate)
	assert.Equal(t, 50.0, cfg.Booking.ConvenienceFee)
	assert.Equal(t, 15*time.Minute, cfg.Booking.PaymentWindow)
	assert.Equal(t, 2*time.Hour, cfg.Booking.CancellationCutoff)
	assert.Equal(t, 30*time.Minute, cfg.Sweeper.BookingInterval)
	assert.Equal(t, time.Hour, cfg.Sweeper.TicketInterval)
	assert.Equal(t, "kafka", cfg.Events.Broker)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOOKING_TAX_RATE", "0.05")
	t.Setenv("BOOKING_PAYMENT_WINDOW", "10m")
	t.Setenv("SWEEPER_TICKET_INTERVAL", "not-a-duration")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("EVENTS_BROKER", "RabbitMQ")

	cfg := Load()

	assert.Equal(t, 0.05, cfg.Booking.TaxRate)
	assert.Equal(t, 10*time.Minute, cfg.Booking.PaymentWindow)
	assert.Equal(t, time.Hour, cfg.Sweeper.TicketInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "rabbitmq", cfg.Events.Broker)
}
