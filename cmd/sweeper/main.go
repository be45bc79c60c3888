// Command sweeper runs the booking and ticket expiry jobs outside the API process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-moviebooking/internal/app"
	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/logger"
)

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logger := logger.NewLogger("sweeper")
	defer logger.Close()

	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("APP", fmt.Sprintf("Failed to initialize: %v", err))
	}
	defer a.Close()

	if *once {
		counts, err := a.Sweeper.RunOnce(ctx)
		for job, n := range counts {
			logger.Info("SWEEPER", fmt.Sprintf("%s: %d records transitioned", job, n))
		}
		if err != nil {
			logger.Error("SWEEPER", err.Error())
			a.Close()
			os.Exit(1)
		}
		return
	}

	a.Sweeper.Start(ctx)
	logger.Info("SWEEPER", "Sweeper running, waiting for shutdown signal")
	<-ctx.Done()
	a.Sweeper.Stop()
	logger.Info("SWEEPER", "Sweeper stopped")
}
