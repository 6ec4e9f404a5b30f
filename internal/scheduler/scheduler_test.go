package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/database"
	"github.com/aristath/signalist/internal/domain"
	"github.com/aristath/signalist/internal/events"
	testingutil "github.com/aristath/signalist/internal/testing"
)

type countingJob struct {
	name  string
	err   error
	calls atomic.Int32
}

func (j *countingJob) Run() error {
	j.calls.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 12 * * *", &countingJob{name: "digest"}))
	require.NoError(t, s.AddJob("@hourly", &countingJob{name: "hourly"}))

	assert.Error(t, s.AddJob("not a cron", &countingJob{name: "bad"}))
	// seconds field is not accepted
	assert.Error(t, s.AddJob("0 0 12 * * *", &countingJob{name: "six-fields"}))
}

func TestScheduler_NextIsUTC(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("0 12 * * *", &countingJob{name: "digest"}))

	s.Start()
	defer s.Stop()

	next := s.Next("digest")
	require.False(t, next.IsZero())
	utc := next.UTC()
	assert.Equal(t, 12, utc.Hour())
	assert.Equal(t, 0, utc.Minute())

	assert.True(t, s.Next("missing").IsZero())
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())

	job := &countingJob{name: "manual"}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.calls.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_ExecuteSwallowsErrors(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "failing", err: errors.New("boom")}

	s.execute(job)
	s.execute(job)

	assert.Equal(t, int32(2), job.calls.Load())
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (r *fakeRunner) RunDailyDigest(ctx context.Context) (domain.WorkflowResult, error) {
	r.mu.Lock()
	r.calls++
	release := r.release
	r.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return domain.WorkflowResult{}, ctx.Err()
		}
	}
	if r.err != nil {
		return domain.WorkflowResult{}, r.err
	}
	return domain.WorkflowResult{Success: true, Message: "ok"}, nil
}

func (r *fakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestDigestJob_Run(t *testing.T) {
	runner := &fakeRunner{}
	job := NewDigestJob(runner, zerolog.Nop())

	assert.Equal(t, JobDailyDigest, job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, runner.Calls())
}

func TestDigestJob_RunError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("users unavailable")}
	job := NewDigestJob(runner, zerolog.Nop())

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users unavailable")

	// the guard is released after a failure
	runner.err = nil
	assert.NoError(t, job.Run())
}

func TestDigestJob_RejectsOverlappingRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	job := NewDigestJob(runner, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- job.Run() }()

	require.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, job.Run(), ErrDigestRunning)

	close(runner.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, runner.Calls())
}

type fakePruner struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (p *fakePruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.deleted, p.err
}

func TestDeliveriesCleanupJob_Run(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	pruner := &fakePruner{deleted: 3}
	job := NewDeliveriesCleanupJob(pruner, 48*time.Hour, clock, zerolog.Nop())

	assert.Equal(t, JobDeliveriesCleanup, job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC), pruner.cutoff)
}

func TestDeliveriesCleanupJob_DefaultRetention(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	pruner := &fakePruner{}
	job := NewDeliveriesCleanupJob(pruner, 0, clock, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, clock.Now().Add(-DefaultDeliveryRetention), pruner.cutoff)
}

func TestDeliveriesCleanupJob_Error(t *testing.T) {
	pruner := &fakePruner{err: errors.New("disk full")}
	job := NewDeliveriesCleanupJob(pruner, time.Hour, clockwork.NewFakeClock(), zerolog.Nop())

	assert.ErrorContains(t, job.Run(), "disk full")
}

type evictions struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (e *evictions) CacheEvicted(table string, n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.counts == nil {
		e.counts = make(map[string]int64)
	}
	e.counts[table] += n
}

func TestNewsCacheCleanupJob_Run(t *testing.T) {
	db := testingutil.NewTestDB(t, database.NameClientData)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	repo := clientdata.NewRepositoryWithClock(db.Conn(), clock)

	require.NoError(t, repo.Store(clientdata.TableCompanyNews, "AAPL", "x", time.Minute))
	require.NoError(t, repo.Store(clientdata.TableCompanyNews, "MSFT", "x", time.Minute))
	require.NoError(t, repo.Store(clientdata.TableCompanyNews, "NVDA", "x", time.Hour))
	require.NoError(t, repo.Store(clientdata.TableGeneralNews, "general", "x", time.Minute))
	clock.Advance(30 * time.Minute)

	rec := &evictions{}
	job := NewNewsCacheCleanupJob(repo, rec, zerolog.Nop())

	assert.Equal(t, JobNewsCacheCleanup, job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, map[string]int64{clientdata.TableCompanyNews: 2, clientdata.TableGeneralNews: 1}, rec.counts)

	var fresh string
	found, err := repo.GetIfFresh(clientdata.TableCompanyNews, "NVDA", &fresh)
	require.NoError(t, err)
	assert.True(t, found)
}

type tablePruner struct {
	failing string
	pruned  []string
}

func (p *tablePruner) DeleteExpired(table string) (int64, error) {
	if table == p.failing {
		return 0, errors.New("database is locked")
	}
	p.pruned = append(p.pruned, table)
	return 1, nil
}

func TestNewsCacheCleanupJob_FailingTableDoesNotStopOthers(t *testing.T) {
	pruner := &tablePruner{failing: clientdata.TableCompanyNews}
	rec := &evictions{}
	job := NewNewsCacheCleanupJob(pruner, rec, zerolog.Nop())

	err := job.Run()
	assert.ErrorContains(t, err, "database is locked")
	assert.Equal(t, []string{clientdata.TableGeneralNews}, pruner.pruned)
	assert.Equal(t, map[string]int64{clientdata.TableGeneralNews: 1}, rec.counts)
}

func TestNewsCacheCleanupJob_NilMetrics(t *testing.T) {
	job := NewNewsCacheCleanupJob(&tablePruner{}, nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_Run(t *testing.T) {
	db := testingutil.NewTestDB(t, database.NameSignalist)

	job := NewCheckWALCheckpointsJob(map[string]*database.DB{
		"signalist": db,
		"missing":   nil,
	}, zerolog.Nop())

	assert.Equal(t, JobCheckWALCheckpoint, job.Name())
	assert.NoError(t, job.Run())
}

func TestCheckWALCheckpointsJob_NoDatabases(t *testing.T) {
	job := NewCheckWALCheckpointsJob(nil, zerolog.Nop())
	assert.NoError(t, job.Run())
}

type fakeWelcome struct {
	mu       sync.Mutex
	received []domain.UserCreatedData
}

func (w *fakeWelcome) SendWelcome(_ context.Context, data domain.UserCreatedData) (domain.WorkflowResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.received = append(w.received, data)
	return domain.WorkflowResult{Success: true}, nil
}

func (w *fakeWelcome) Received() []domain.UserCreatedData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.UserCreatedData(nil), w.received...)
}

func TestRegisterListeners(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	welcome := &fakeWelcome{}
	runner := &fakeRunner{}
	digest := NewDigestJob(runner, zerolog.Nop())

	unsubscribe := RegisterListeners(bus, welcome, digest, zerolog.Nop())

	bus.Emit(events.UserCreated, "users", &events.UserCreatedData{
		UserCreatedData: domain.UserCreatedData{Email: "ada@example.com", Name: "Ada"},
	})
	bus.Emit(events.DigestRequested, "digest", &events.DigestRequestedData{Reason: "manual"})

	require.Eventually(t, func() bool {
		return len(welcome.Received()) == 1 && runner.Calls() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ada@example.com", welcome.Received()[0].Email)

	unsubscribe()
	bus.Emit(events.DigestRequested, "digest", &events.DigestRequestedData{Reason: "manual"})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, runner.Calls())
}

func TestRegisterListeners_IgnoresUnexpectedPayload(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	welcome := &fakeWelcome{}
	digest := NewDigestJob(&fakeRunner{}, zerolog.Nop())

	unsubscribe := RegisterListeners(bus, welcome, digest, zerolog.Nop())
	defer unsubscribe()

	bus.Emit(events.UserCreated, "users", &events.DigestRequestedData{Reason: "wrong"})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, welcome.Received())
}
