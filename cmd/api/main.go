package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/server"
)

func main() {
	// Setup structured logging
	logger.SetupLogger()
	log := logger.New("api-service")

	// Load configuration
	cfg := config.Load()

	// Create and configure server
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "server_creation_failed").
			Msg("Failed to create server")
	}
	defer srv.Close()

	// Install cron tasks for every persisted active job
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := srv.Scheduler().InitializeFromStore(ctx); err != nil {
		cancel()
		log.Fatal().
			Err(err).
			Str("action", "scheduler_init_failed").
			Msg("Failed to initialize scheduled jobs")
	}
	cancel()

	// Start server in the background so shutdown can drain cron tasks
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().
			Err(err).
			Str("action", "server_failed").
			Msg("Server failed to start")
	case sig := <-quit:
		log.Info().
			Str("action", "shutdown_signal").
			Str("signal", sig.String()).
			Msg("Shutting down")
	}

	stopped := srv.Scheduler().EmergencyStopAll()
	log.Info().
		Int("stopped_count", stopped).
		Str("action", "scheduler_drained").
		Msg("All cron tasks stopped")
}
