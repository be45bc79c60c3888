// Command migrate applies or rolls back the embedded postgres migrations.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/database"
	"ms-moviebooking/internal/database/migrations"
	"ms-moviebooking/internal/logger"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	to := flag.Uint("to", 0, "migrate up or down to this version")
	flag.Parse()

	logger := logger.NewLogger("migrate")
	defer logger.Close()

	_ = godotenv.Load()
	cfg := config.Load()

	bunDB, err := database.Open(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(bunDB, logger)
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Warn("MIGRATE", err.Error())
		}
	}()

	switch {
	case *down:
		err = runner.MigrateDown()
	case *to > 0:
		err = runner.MigrateTo(*to)
	default:
		err = runner.MigrateUp()
	}
	if err != nil {
		logger.Error("MIGRATE", err.Error())
		return
	}
	logger.Info("MIGRATE", fmt.Sprintf("Migrations finished on %s", cfg.Database.Driver))
}
