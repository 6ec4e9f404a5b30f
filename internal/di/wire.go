// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Apply settings overrides to cfg (stored API keys win over env)
// 4. Initialize services
// 5. Register jobs
func Wire(ctx context.Context, cfg *config.Config, slogger *slog.Logger, log zerolog.Logger) (*Container, *JobInstances, error) {
	clock := clockwork.NewRealClock()

	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := InitializeRepositories(container, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := cfg.UpdateFromSettings(container.SettingsRepo); err != nil {
		log.Warn().Err(err).Msg("Failed to update config from settings DB, using environment variables")
	}

	if err := InitializeServices(ctx, container, cfg, slogger, clock, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, cfg, clock, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Bool("local_mode", container.LocalMode()).Msg("Dependency injection wiring completed successfully")

	return container, jobs, nil
}
