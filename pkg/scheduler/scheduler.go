// Package scheduler runs the periodic due-target sweep: pull due
// targets, gate each behind its run lock and the global concurrency
// cap, and dispatch one workflow run per admitted target.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/runlock"
)

// Runner executes one complete run for a target. Implemented by
// workflow.Engine.
type Runner interface {
	Run(ctx context.Context, target *models.Target) *models.RunOutcome
}

// Config tunes the sweep loop.
type Config struct {
	// SweepInterval is the fixed wait between sweeps, independent of
	// individual target frequencies.
	SweepInterval time.Duration

	// MaxConcurrentRuns caps in-flight runs across all sweeps.
	MaxConcurrentRuns int64

	// LockLease bounds how long a run may hold its target's lock. Must
	// comfortably exceed the slowest expected run.
	LockLease time.Duration

	// DrainTimeout bounds how long shutdown waits for in-flight runs.
	DrainTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c

	if out.SweepInterval <= 0 {
		out.SweepInterval = time.Minute
	}

	if out.MaxConcurrentRuns <= 0 {
		out.MaxConcurrentRuns = 10
	}

	if out.LockLease <= 0 {
		out.LockLease = 5 * time.Minute
	}

	if out.DrainTimeout <= 0 {
		out.DrainTimeout = 30 * time.Second
	}

	return out
}

// Scheduler is the single sweep goroutine plus its bounded run pool.
type Scheduler struct {
	targets persistence.TargetRepository
	locker  runlock.Locker
	runner  Runner
	config  Config
	sem     *semaphore.Weighted
	logger  *slog.Logger
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewScheduler wires a scheduler over the registry, lock and runner.
func NewScheduler(
	targets persistence.TargetRepository,
	locker runlock.Locker,
	runner Runner,
	config Config,
	logger *slog.Logger,
) *Scheduler {
	cfg := config.withDefaults()

	return &Scheduler{
		targets: targets,
		locker:  locker,
		runner:  runner,
		config:  cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrentRuns),
		logger:  logger.With("module", "scheduler"),
		now:     time.Now,
	}
}

// Start sweeps until ctx is cancelled, then drains in-flight runs up to
// the drain timeout.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Scheduler started",
		"sweep_interval", s.config.SweepInterval,
		"max_concurrent_runs", s.config.MaxConcurrentRuns)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)

		select {
		case <-ctx.Done():
			return s.drain()
		case <-ticker.C:
		}
	}
}

// sweep admits due targets oldest-due-first until the concurrency cap
// is reached; the remainder waits for the next sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	due, err := s.targets.ListDue(ctx, s.now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list due targets", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	s.logger.DebugContext(ctx, "Sweep found due targets", "count", len(due))

	admitted := 0

	for _, target := range due {
		if !s.sem.TryAcquire(1) {
			s.logger.InfoContext(ctx, "Concurrency cap reached, deferring remainder",
				"deferred", len(due)-admitted)

			break
		}

		if !s.dispatch(ctx, target) {
			s.sem.Release(1)

			continue
		}

		admitted++
	}
}

// dispatch takes the target's run lock and starts the run goroutine.
// Returns false when the target was skipped (lock held elsewhere).
func (s *Scheduler) dispatch(ctx context.Context, target *models.Target) bool {
	token, err := s.locker.Acquire(ctx, target.ID, s.config.LockLease)
	if err != nil {
		if errors.Is(err, runlock.ErrLockHeld) {
			// Another run owns the target; next_due_at is unchanged so
			// the next sweep reconsiders it.
			s.logger.DebugContext(ctx, "Target locked by another run, skipping",
				"target_id", target.ID)
		} else {
			s.logger.ErrorContext(ctx, "Failed to acquire run lock",
				"target_id", target.ID, "error", err)
		}

		return false
	}

	// Runs are detached from the sweep context so shutdown lets them
	// reach a terminal state; the lease bounds their lifetime instead.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.LockLease)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.sem.Release(1)
		defer s.release(target.ID, token)

		s.runner.Run(runCtx, target)
	}()

	return true
}

func (s *Scheduler) release(targetID, token string) {
	// Release outlives the sweep context so a run finishing during
	// shutdown still frees its lock.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.locker.Release(ctx, targetID, token); err != nil {
		if errors.Is(err, runlock.ErrStaleToken) {
			// Lease expired mid-run and may have been reacquired. The
			// lock self-heals; nothing to do beyond noting it.
			s.logger.Warn("Run outlived its lock lease", "target_id", targetID)

			return
		}

		s.logger.Error("Failed to release run lock", "target_id", targetID, "error", err)
	}
}

// drain waits for in-flight runs, giving up after the drain timeout so
// shutdown is never unbounded. Abandoned runs leave their locks to
// expire naturally.
func (s *Scheduler) drain() error {
	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler drained cleanly")

		return nil
	case <-time.After(s.config.DrainTimeout):
		s.logger.Warn("Drain timeout elapsed with runs still in flight")

		return errors.New("scheduler drain timed out")
	}
}
