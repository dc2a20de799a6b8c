package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence/file"
	"github.com/vigilhq/vigil/pkg/runlock"
)

// recordingRunner tracks run invocations and can hold runs open to
// simulate slow port calls.
type recordingRunner struct {
	mu      sync.Mutex
	runs    []string
	block   chan struct{}
	started chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{started: make(chan string, 100)}
}

func (r *recordingRunner) Run(_ context.Context, target *models.Target) *models.RunOutcome {
	r.mu.Lock()
	r.runs = append(r.runs, target.ID)
	r.mu.Unlock()

	r.started <- target.ID

	if r.block != nil {
		<-r.block
	}

	return &models.RunOutcome{TargetID: target.ID, Status: models.RunStatusSkipped}
}

func (r *recordingRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.runs...)
}

func seedTargets(t *testing.T, store *file.Persistence, ids ...string) {
	t.Helper()

	// Stagger creation so due times have a strict oldest-first order.
	base := time.Now().Add(-time.Hour)

	for i, id := range ids {
		target := models.NewTarget(id, "owner-1", "https://example.com/"+id,
			models.TargetTypeWebsite, time.Hour)
		target.NextDueAt = base.Add(time.Duration(i) * time.Minute)

		require.NoError(t, store.Targets().Create(context.Background(), target))
	}
}

func newTestScheduler(t *testing.T, store *file.Persistence, runner Runner, config Config) *Scheduler {
	t.Helper()

	if config.LockLease == 0 {
		config.LockLease = time.Minute
	}

	return NewScheduler(store.Targets(), runlock.NewMemoryLocker(), runner, config, log.NewDiscard())
}

func TestScheduler_SweepRunsDueTargets(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	seedTargets(t, store, "a", "b")

	s := newTestScheduler(t, store, runner, Config{})
	s.sweep(context.Background())
	s.wg.Wait()

	assert.ElementsMatch(t, []string{"a", "b"}, runner.ran())
}

func TestScheduler_AdmitsOldestFirstUnderCap(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	runner.block = make(chan struct{})
	seedTargets(t, store, "oldest", "middle", "newest")

	s := newTestScheduler(t, store, runner, Config{MaxConcurrentRuns: 2})
	s.sweep(context.Background())

	// Exactly the two oldest targets get admitted; the third waits for
	// the next sweep. Goroutine start order is not deterministic, the
	// admitted set is.
	admitted := []string{<-runner.started, <-runner.started}
	assert.ElementsMatch(t, []string{"oldest", "middle"}, admitted)

	select {
	case unexpected := <-runner.started:
		t.Fatalf("target %q admitted beyond the cap", unexpected)
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.block)
	s.wg.Wait()

	// Capacity freed: the deferred target is admitted next sweep.
	runner.block = nil
	s.sweep(context.Background())
	s.wg.Wait()

	assert.Contains(t, runner.ran(), "newest")
}

func TestScheduler_OverlappingSweepsRunTargetOnce(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	runner.block = make(chan struct{})
	seedTargets(t, store, "contended")

	s := newTestScheduler(t, store, runner, Config{})

	s.sweep(context.Background())
	<-runner.started

	// Second sweep while the first run still holds the lock: the
	// target is skipped, not queued.
	s.sweep(context.Background())

	select {
	case <-runner.started:
		t.Fatal("second sweep started a concurrent run for a locked target")
	case <-time.After(100 * time.Millisecond):
	}

	close(runner.block)
	s.wg.Wait()

	assert.Equal(t, []string{"contended"}, runner.ran())
}

func TestScheduler_LockReleasedAfterRun(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	seedTargets(t, store, "a")

	s := newTestScheduler(t, store, runner, Config{})

	s.sweep(context.Background())
	s.wg.Wait()

	// Target still due (stub runner never reschedules); a fresh sweep
	// must be able to reacquire the lock.
	s.sweep(context.Background())
	s.wg.Wait()

	assert.Equal(t, []string{"a", "a"}, runner.ran())
}

func TestScheduler_StartStopsOnCancel(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	seedTargets(t, store, "a")

	s := newTestScheduler(t, store, runner, Config{
		SweepInterval: 10 * time.Millisecond,
		DrainTimeout:  time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() { done <- s.Start(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never dispatched a run")
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestScheduler_DrainTimesOutOnStuckRun(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	runner := newRecordingRunner()
	runner.block = make(chan struct{})
	seedTargets(t, store, "stuck")

	s := newTestScheduler(t, store, runner, Config{DrainTimeout: 50 * time.Millisecond})

	s.sweep(context.Background())
	<-runner.started

	err := s.drain()
	assert.Error(t, err)

	close(runner.block)
	s.wg.Wait()
}
