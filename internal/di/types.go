/**
 * Package di provides dependency injection type definitions.
 *
 * The Container holds every application dependency. It is built by Wire()
 * and handed to the HTTP server and the entry point.
 */
package di

import (
	"github.com/inngest/inngestgo"

	"github.com/aristath/signalist/internal/archive"
	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/clients/finnhub"
	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
	"github.com/aristath/signalist/internal/mailer"
	"github.com/aristath/signalist/internal/metrics"
	"github.com/aristath/signalist/internal/modules/deliveries"
	"github.com/aristath/signalist/internal/modules/settings"
	"github.com/aristath/signalist/internal/modules/users"
	"github.com/aristath/signalist/internal/modules/watchlist"
	"github.com/aristath/signalist/internal/notifications"
	"github.com/aristath/signalist/internal/scheduler"
	"github.com/aristath/signalist/internal/workflow"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: signalist.db (users, watchlists, settings, deliveries) and client_data.db (API cache)
 * - Repositories: data access layer
 * - Clients: news API, summarizer, mail provider, archive
 * - Services: notification workflows and their engine binding
 * - Scheduler: housekeeping jobs, plus the daily digest in local mode
 */
type Container struct {
	// Databases
	SignalistDB  *database.DB
	ClientDataDB *database.DB

	// Repositories
	UserRepo       *users.Repository
	WatchlistRepo  *watchlist.Repository
	SettingsRepo   *settings.Repository
	DeliveryRepo   *deliveries.Repository
	ClientDataRepo *clientdata.Repository

	// Clients
	NewsClient *finnhub.Client
	Summarizer domain.Summarizer
	Mailer     mailer.Sender
	Archive    *archive.Archive // nil when archiving is disabled

	// Services
	EventBus      *events.Bus
	Metrics       *metrics.Metrics
	Notifications *notifications.Service
	Publisher     workflow.Publisher

	// Workflow engine; nil in local mode
	Inngest   inngestgo.Client
	Functions []inngestgo.ServableFunction

	// Scheduling
	Scheduler         *scheduler.Scheduler
	unsubscribeLocals func()
}

// JobInstances holds the registered scheduler jobs so they can be triggered manually
type JobInstances struct {
	DailyDigest       *scheduler.DigestJob
	NewsCacheCleanup  *scheduler.NewsCacheCleanupJob
	DeliveriesCleanup *scheduler.DeliveriesCleanupJob
	WALCheckpoints    *scheduler.CheckWALCheckpointsJob
	Maintenance       *scheduler.DatabaseMaintenanceJob
}

// LocalMode reports whether the workflows run in-process
func (c *Container) LocalMode() bool {
	return c.Inngest == nil
}

// Databases returns every open database keyed by name
func (c *Container) Databases() map[string]*database.DB {
	dbs := make(map[string]*database.DB, 2)
	if c.SignalistDB != nil {
		dbs[c.SignalistDB.Name()] = c.SignalistDB
	}
	if c.ClientDataDB != nil {
		dbs[c.ClientDataDB.Name()] = c.ClientDataDB
	}
	return dbs
}

// Close stops background work and closes the databases
func (c *Container) Close() error {
	if c.unsubscribeLocals != nil {
		c.unsubscribeLocals()
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	var firstErr error
	for _, db := range []*database.DB{c.SignalistDB, c.ClientDataDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
