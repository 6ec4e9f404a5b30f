// Package main is the entry point for the Signalist notification service.
// It sends a personalized welcome email on signup and a daily market news
// digest built from each user's watchlist.
//
// The workflows run on the Inngest engine when INNGEST_ENABLED is true,
// otherwise in-process on a local cron scheduler and the event bus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/di"
	"github.com/aristath/signalist/internal/server"
	"github.com/aristath/signalist/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes logging (zerolog, plus a slog bridge for the Inngest SDK)
// 3. Wires all dependencies via the DI container; stored settings override env credentials
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	}
	log := logger.New(logCfg)
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Signalist")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, logger.NewSlog(logCfg, os.Stderr), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close databases")
		}
	}()

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
		Jobs:      jobs,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().
		Int("port", cfg.Port).
		Bool("local_mode", container.LocalMode()).
		Str("digest_cron", cfg.Digest.Cron).
		Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	// In-flight requests (including engine step calls) get 30 seconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
