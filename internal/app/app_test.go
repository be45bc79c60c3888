package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/events"
	"ms-moviebooking/internal/logger"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("POSTGRES_DSN", ":memory:")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("EVENTS_BROKER", "none")
	return config.Load()
}

func TestNewWithSQLite(t *testing.T) {
	a, err := New(context.Background(), sqliteConfig(t), logger.NewConsoleLogger(io.Discard))
	require.NoError(t, err)
	defer a.Close()

	require.IsType(t, events.Fanout{}, a.Publisher)
	assert.IsType(t, events.Noop{}, a.Publisher.(events.Fanout)[0])
	assert.Nil(t, a.PaymentConsumer())
	assert.Nil(t, a.Reservations.Locks)

	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"movie_id":"m1","theater_id":"t1","screen_number":1,
		"start_time":"2099-01-01T18:00:00Z","end_time":"2099-01-01T20:00:00Z",
		"total_seats":50,"price":150}`
	resp, err = http.Post(srv.URL+"/api/showtimes", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.True(t, env.Success)

	counts, err := a.Sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts["expire-bookings"])
}

func TestUnknownBrokerIsRejected(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Events.Broker = "carrier-pigeon"
	_, err := New(context.Background(), cfg, logger.NewConsoleLogger(io.Discard))
	assert.Error(t, err)
}
