// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. signalist.db - users, watchlists, settings, delivery log
	signalistDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "signalist.db"),
		Profile: database.ProfileStandard,
		Name:    database.NameSignalist,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signalist database: %w", err)
	}
	container.SignalistDB = signalistDB

	// 2. client_data.db - news API response cache
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    database.NameClientData,
	})
	if err != nil {
		signalistDB.Close()
		return nil, fmt.Errorf("failed to initialize client_data database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for _, db := range []*database.DB{signalistDB, clientDataDB} {
		if err := db.Migrate(); err != nil {
			signalistDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", db.Name(), err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")

	return container, nil
}
