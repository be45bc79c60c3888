package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/database/migrations"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

// TestPostgresMigrationsIntegration applies the embedded migrations to a real
// postgres container and checks the live seat index.
func TestPostgresMigrationsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "moviebooking",
				"POSTGRES_PASSWORD": "moviebooking",
				"POSTGRES_DB":       "moviebooking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	log := logger.NewConsoleLogger(testWriter{t})
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver:       "postgres",
		DSN:          fmt.Sprintf("postgres://moviebooking:moviebooking@%s:%s/moviebooking?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 5,
		MaxLifetime:  time.Minute,
		ConnRetries:  5,
	}, log)
	require.NoError(t, err)

	runner := migrations.NewRunner(db, log)
	require.NoError(t, runner.MigrateUp())
	require.NoError(t, runner.MigrateUp())

	_, err = db.NewInsert().Model(newTicket("show-1", "A1", models.TicketActive)).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(newTicket("show-1", "A1", models.TicketActive)).Exec(ctx)
	assert.True(t, database.IsUniqueViolation(err), "expected unique violation, got %v", err)

	require.NoError(t, runner.Close())
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
