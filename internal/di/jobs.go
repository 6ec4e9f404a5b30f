package di

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/scheduler"
)

// Housekeeping schedules (standard cron, UTC)
const (
	newsCacheCleanupSchedule  = "0 3 * * *"
	deliveriesCleanupSchedule = "30 3 * * *"
	walCheckpointSchedule     = "@every 15m"
	maintenanceSchedule       = "0 4 * * 0"
)

// RegisterJobs creates the scheduler and its jobs. In local mode the daily
// digest runs on cfg.Digest.Cron and the bus listeners drive both workflows.
// The scheduler is created but not started.
func RegisterJobs(container *Container, cfg *config.Config, clock clockwork.Clock, log zerolog.Logger) (*JobInstances, error) {
	if container.Notifications == nil {
		return nil, fmt.Errorf("services must be initialized before jobs")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched

	jobs := &JobInstances{
		DailyDigest:       scheduler.NewDigestJob(container.Notifications, log),
		NewsCacheCleanup:  scheduler.NewNewsCacheCleanupJob(container.ClientDataRepo, container.Metrics, log),
		DeliveriesCleanup: scheduler.NewDeliveriesCleanupJob(container.DeliveryRepo, scheduler.DefaultDeliveryRetention, clock, log),
		WALCheckpoints:    scheduler.NewCheckWALCheckpointsJob(container.Databases(), log),
		Maintenance:       scheduler.NewDatabaseMaintenanceJob(container.Databases(), cfg.DataDir, log),
	}

	housekeeping := []struct {
		schedule string
		job      scheduler.Job
	}{
		{newsCacheCleanupSchedule, jobs.NewsCacheCleanup},
		{deliveriesCleanupSchedule, jobs.DeliveriesCleanup},
		{walCheckpointSchedule, jobs.WALCheckpoints},
		{maintenanceSchedule, jobs.Maintenance},
	}
	for _, h := range housekeeping {
		if err := sched.AddJob(h.schedule, h.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", h.job.Name(), err)
		}
	}

	if container.LocalMode() {
		if err := sched.AddJob(cfg.Digest.Cron, jobs.DailyDigest); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", jobs.DailyDigest.Name(), err)
		}
		container.unsubscribeLocals = scheduler.RegisterListeners(container.EventBus, container.Notifications, jobs.DailyDigest, log)
	}

	return jobs, nil
}
