package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/modules/deliveries"
	"github.com/aristath/signalist/internal/modules/settings"
	"github.com/aristath/signalist/internal/modules/users"
	"github.com/aristath/signalist/internal/modules/watchlist"
)

// InitializeRepositories creates all repositories on top of the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.SignalistDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases must be initialized before repositories")
	}

	conn := container.SignalistDB.Conn()

	container.UserRepo = users.NewRepository(conn, log)
	container.WatchlistRepo = watchlist.NewRepository(conn, log)
	container.SettingsRepo = settings.NewRepository(conn, log)
	container.DeliveryRepo = deliveries.NewRepository(conn, log)
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}
