package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/signalist/internal/database"
)

// JobDatabaseMaintenance is the weekly maintenance job name
const JobDatabaseMaintenance = "database_maintenance"

// Free disk space thresholds for the data directory
const (
	diskCriticalBytes = 500 << 20
	diskWarnBytes     = 5 << 30
)

// DatabaseMaintenanceJob checks integrity, truncates WAL files, and vacuums
// cache-profile databases. It fails when a database is corrupt or the data
// directory is almost full.
type DatabaseMaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewDatabaseMaintenanceJob creates the maintenance job. An empty dataDir skips the disk check.
func NewDatabaseMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("job", JobDatabaseMaintenance).Logger(),
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return JobDatabaseMaintenance
}

// Run executes the maintenance steps
func (j *DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	j.log.Info().Msg("Starting database maintenance")
	start := time.Now()

	for name, db := range j.databases {
		if db == nil {
			continue
		}

		if err := integrityCheck(ctx, db); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("%s: %w", name, err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}

		if db.Profile() == database.ProfileCache {
			if err := j.vacuum(ctx, db, name); err != nil {
				j.log.Error().Err(err).Str("database", name).Msg("VACUUM failed")
			}
		}
	}

	if err := j.checkDiskSpace(ctx); err != nil {
		return err
	}

	j.log.Info().Dur("duration_ms", time.Since(start)).Msg("Database maintenance completed")
	return nil
}

func integrityCheck(ctx context.Context, db *database.DB) error {
	var result string
	if err := db.Conn().QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("quick_check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database is corrupt: %s", result)
	}
	return nil
}

func (j *DatabaseMaintenanceJob) vacuum(ctx context.Context, db *database.DB, name string) error {
	before, err := fileBytes(ctx, db)
	if err != nil {
		return err
	}

	if _, err := db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	after, err := fileBytes(ctx, db)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", name).
		Float64("size_before_mb", float64(before)/1024/1024).
		Float64("size_after_mb", float64(after)/1024/1024).
		Msg("VACUUM completed")
	return nil
}

func fileBytes(ctx context.Context, db *database.DB) (int64, error) {
	var pageCount, pageSize int64
	if err := db.Conn().QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := db.Conn().QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page_size: %w", err)
	}
	return pageCount * pageSize, nil
}

func (j *DatabaseMaintenanceJob) checkDiskSpace(ctx context.Context) error {
	if j.dataDir == "" {
		return nil
	}

	usage, err := disk.UsageWithContext(ctx, j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Str("path", j.dataDir).Msg("Failed to read disk usage")
		return nil
	}

	freeGB := float64(usage.Free) / 1e9
	switch {
	case usage.Free < diskCriticalBytes:
		j.log.Error().Float64("free_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case usage.Free < diskWarnBytes:
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check")
	}
	return nil
}
