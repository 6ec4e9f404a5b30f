package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
)

// Job names
const (
	JobDailyDigest        = "daily_news_digest"
	JobDeliveriesCleanup  = "deliveries_cleanup"
	JobNewsCacheCleanup   = "news_cache_cleanup"
	JobCheckWALCheckpoint = "check_wal_checkpoints"
)

// DefaultDigestTimeout bounds a single in-process digest run
const DefaultDigestTimeout = 30 * time.Minute

// DefaultDeliveryRetention is how long delivery log entries are kept
const DefaultDeliveryRetention = 90 * 24 * time.Hour

// ErrDigestRunning is returned when a digest is requested while one is in progress
var ErrDigestRunning = errors.New("daily digest already running")

// DigestRunner runs the whole daily digest workflow
type DigestRunner interface {
	RunDailyDigest(ctx context.Context) (domain.WorkflowResult, error)
}

// DigestJob runs the daily digest. Overlapping runs are rejected.
type DigestJob struct {
	runner  DigestRunner
	timeout time.Duration
	running atomic.Bool
	log     zerolog.Logger
}

// NewDigestJob creates a digest job
func NewDigestJob(runner DigestRunner, log zerolog.Logger) *DigestJob {
	return &DigestJob{
		runner:  runner,
		timeout: DefaultDigestTimeout,
		log:     log.With().Str("job", JobDailyDigest).Logger(),
	}
}

// Name returns the job name
func (j *DigestJob) Name() string {
	return JobDailyDigest
}

// Run executes the digest with the default timeout
func (j *DigestJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	return j.RunContext(ctx)
}

// RunContext executes the digest, failing fast if another run is active
func (j *DigestJob) RunContext(ctx context.Context) error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Digest already running, skipping")
		return ErrDigestRunning
	}
	defer j.running.Store(false)

	result, err := j.runner.RunDailyDigest(ctx)
	if err != nil {
		return fmt.Errorf("daily digest: %w", err)
	}

	j.log.Info().Str("message", result.Message).Msg("Daily digest finished")
	return nil
}

// DeliveryPruner deletes old delivery log entries
type DeliveryPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DeliveriesCleanupJob removes delivery log entries past the retention window
type DeliveriesCleanupJob struct {
	repo      DeliveryPruner
	retention time.Duration
	clock     clockwork.Clock
	log       zerolog.Logger
}

// NewDeliveriesCleanupJob creates a cleanup job. A non-positive retention
// falls back to DefaultDeliveryRetention.
func NewDeliveriesCleanupJob(repo DeliveryPruner, retention time.Duration, clock clockwork.Clock, log zerolog.Logger) *DeliveriesCleanupJob {
	if retention <= 0 {
		retention = DefaultDeliveryRetention
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DeliveriesCleanupJob{
		repo:      repo,
		retention: retention,
		clock:     clock,
		log:       log.With().Str("job", JobDeliveriesCleanup).Logger(),
	}
}

// Name returns the job name
func (j *DeliveriesCleanupJob) Name() string {
	return JobDeliveriesCleanup
}

// Run deletes expired delivery log entries
func (j *DeliveriesCleanupJob) Run() error {
	cutoff := j.clock.Now().Add(-j.retention)

	deleted, err := j.repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune deliveries: %w", err)
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Pruned delivery log")
	}
	return nil
}

// CachePruner deletes expired rows from one news cache table
type CachePruner interface {
	DeleteExpired(table string) (int64, error)
}

// EvictionRecorder counts removed cache rows
type EvictionRecorder interface {
	CacheEvicted(table string, n int64)
}

// NewsCacheCleanupJob removes expired Finnhub responses from every news cache
// table. A failing table does not stop the others.
type NewsCacheCleanupJob struct {
	repo    CachePruner
	tables  []string
	metrics EvictionRecorder
	log     zerolog.Logger
}

// NewNewsCacheCleanupJob creates the cleanup job. metrics may be nil.
func NewNewsCacheCleanupJob(repo CachePruner, metrics EvictionRecorder, log zerolog.Logger) *NewsCacheCleanupJob {
	return &NewsCacheCleanupJob{
		repo:    repo,
		tables:  clientdata.AllTables,
		metrics: metrics,
		log:     log.With().Str("job", JobNewsCacheCleanup).Logger(),
	}
}

// Name returns the job name
func (j *NewsCacheCleanupJob) Name() string {
	return JobNewsCacheCleanup
}

// Run prunes each table and reports what was removed
func (j *NewsCacheCleanupJob) Run() error {
	var result *multierror.Error
	var total int64

	for _, table := range j.tables {
		deleted, err := j.repo.DeleteExpired(table)
		if err != nil {
			j.log.Error().Err(err).Str("table", table).Msg("Failed to prune news cache")
			result = multierror.Append(result, err)
			continue
		}

		if j.metrics != nil {
			j.metrics.CacheEvicted(table, deleted)
		}
		j.log.Debug().
			Str("table", table).
			Int64("deleted", deleted).
			Msg("Pruned news cache table")
		total += deleted
	}

	if total > 0 {
		j.log.Info().Int64("deleted", total).Msg("News cache cleanup completed")
	}
	return result.ErrorOrNil()
}

// walWarnFrames is the WAL size (in frames) above which a warning is logged
const walWarnFrames = 1000

// CheckWALCheckpointsJob runs a passive WAL checkpoint on every database and
// reports WAL files that keep growing.
type CheckWALCheckpointsJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewCheckWALCheckpointsJob creates a WAL checkpoint job. Nil databases are skipped.
func NewCheckWALCheckpointsJob(databases map[string]*database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		databases: databases,
		log:       log.With().Str("job", JobCheckWALCheckpoint).Logger(),
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return JobCheckWALCheckpoint
}

// Run executes the checkpoint check
func (j *CheckWALCheckpointsJob) Run() error {
	checked := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		// busy, log frames, checkpointed frames
		var busy, frames, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
		if err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("Failed to check WAL checkpoint")
			continue
		}

		if frames > walWarnFrames {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", frames).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, checkpoint may be needed")
		}
		checked++
	}

	j.log.Debug().Int("checked", checked).Msg("WAL checkpoint check completed")
	return nil
}
