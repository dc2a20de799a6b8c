// Package main is the vigil scheduler binary: the periodic sweep that
// drives monitoring runs for due targets.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/vigilhq/vigil/pkg/cmd"
	"github.com/vigilhq/vigil/pkg/eventbus"
	"github.com/vigilhq/vigil/pkg/fetcher"
	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/otelhelper"
	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/scheduler"
	"github.com/vigilhq/vigil/pkg/workflow"
)

// Monitor bundles the scheduler with the resources it owns.
type Monitor struct {
	scheduler   *scheduler.Scheduler
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

// NewMonitor wires persistence, ports, engine and scheduler from CLI
// configuration.
func NewMonitor(ctx context.Context, command *cli.Command) (*Monitor, error) {
	logger := log.WithModule("vigil-scheduler")

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), "scheduler", logger)
	if err != nil {
		return nil, err
	}

	locker, err := cmd.NewRunLock(ctx, command.String("redis-url"))
	if err != nil {
		return nil, err
	}

	classify, err := cmd.NewClassifier(ctx,
		command.String("gemini-api-key"), command.String("gemini-model"), logger)
	if err != nil {
		return nil, err
	}

	notify := cmd.NewNotifier(cmd.NotifierConfig{
		SMTPHost:     command.String("smtp-host"),
		SMTPPort:     command.Int("smtp-port"),
		SMTPUsername: command.String("smtp-username"),
		SMTPPassword: command.String("smtp-password"),
		SMTPFrom:     command.String("smtp-from"),
	}, logger)

	tracer, err := otelhelper.NewTracer(ctx, "vigil-scheduler")
	if err != nil {
		return nil, err
	}

	engine := workflow.NewEngine(
		store,
		fetcher.NewHTTPFetcher(logger),
		classify,
		notify,
		eventBus,
		tracer,
		workflow.Config{
			NotifyThreshold: models.Severity(command.String("notify-threshold")),
		},
		logger,
	)

	sched := scheduler.NewScheduler(store.Targets(), locker, engine, scheduler.Config{
		SweepInterval:     command.Duration("sweep-interval"),
		MaxConcurrentRuns: int64(command.Int("max-concurrent-runs")),
		LockLease:         command.Duration("lock-lease"),
		DrainTimeout:      command.Duration("drain-timeout"),
	}, logger)

	return &Monitor{
		scheduler:   sched,
		persistence: store,
		eventBus:    eventBus,
		logger:      logger,
	}, nil
}

// Start sweeps until a shutdown signal arrives, then drains.
func (m *Monitor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		m.logger.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	return m.scheduler.Start(ctx)
}

// Close releases the event bus and persistence.
func (m *Monitor) Close(ctx context.Context) {
	if err := m.eventBus.Close(); err != nil {
		m.logger.Error("Failed to close event bus", "error", err)
	}

	if err := m.persistence.Close(ctx); err != nil {
		m.logger.Error("Failed to close persistence", "error", err)
	}
}
