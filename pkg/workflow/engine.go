// Package workflow implements the per-target run state machine:
// fetch, compare, classify, route, notify.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vigilhq/vigil/pkg/eventbus"
	"github.com/vigilhq/vigil/pkg/events"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/otelhelper"
	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/ports"
)

// State names one position in the run state machine.
type State string

const (
	StatePending     State = "PENDING"
	StateFetching    State = "FETCHING"
	StateComparing   State = "COMPARING"
	StateClassifying State = "CLASSIFYING"
	StateRouting     State = "ROUTING"
	StateNotifying   State = "NOTIFYING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
	StateSkipped     State = "SKIPPED"
)

// ErrDataConsistency indicates the snapshot store violated its own
// invariants, e.g. a pending comparison without a retained prior
// snapshot. Fatal to the run, never silently skipped.
var ErrDataConsistency = errors.New("snapshot state inconsistent")

// Config tunes run behavior.
type Config struct {
	// NotifyThreshold is the minimum severity that triggers a
	// notification. Changes below it are recorded but not pushed.
	NotifyThreshold models.Severity
}

// Engine drives one target through a full monitoring run. It never
// touches the run lock; the caller scopes acquisition around Run so
// release happens on every exit path.
type Engine struct {
	persistence persistence.Persistence
	fetcher     ports.Fetcher
	classifier  ports.Classifier
	notifier    ports.Notifier
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	threshold   models.Severity
	logger      *slog.Logger
	now         func() time.Time
}

// NewEngine wires the engine. publisher may be nil when no event bus is
// configured.
func NewEngine(
	p persistence.Persistence,
	fetcher ports.Fetcher,
	classifier ports.Classifier,
	notifier ports.Notifier,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	config Config,
	logger *slog.Logger,
) *Engine {
	threshold := config.NotifyThreshold
	if threshold == "" {
		threshold = models.SeverityMajor
	}

	return &Engine{
		persistence: p,
		fetcher:     fetcher,
		classifier:  classifier,
		notifier:    notifier,
		publisher:   publisher,
		tracer:      tracer,
		threshold:   threshold,
		logger:      logger.With("module", "workflow"),
		now:         time.Now,
	}
}

// Run executes one complete run for the target and returns its terminal
// outcome. The terminal contract always holds: the run outcome is
// recorded and the target rescheduled (or paused) before Run returns.
func (e *Engine) Run(ctx context.Context, target *models.Target) *models.RunOutcome {
	runID := uuid.New().String()
	startedAt := e.now()
	logger := e.logger.With("target_id", target.ID, "run_id", runID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.TargetIDKey, target.ID),
		attribute.String(otelhelper.TargetTypeKey, string(target.Type)),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer span.End()

	e.publish(ctx, target.ID, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, target.ID),
		RunID:     runID,
		TargetURL: target.URL,
	})

	state, runErr := e.execute(ctx, target, logger)
	span.SetAttributes(attribute.String(otelhelper.RunStateKey, string(state)))

	outcome := e.finish(ctx, target, state, runErr, startedAt, logger)
	e.publishTerminal(ctx, target, runID, outcome, startedAt)

	if runErr != nil {
		otelhelper.SetError(span, runErr)
	}

	return outcome
}

// execute walks the state machine up to a terminal state. It returns
// StateDone, StateSkipped, or StateFailed with the causing error.
func (e *Engine) execute(ctx context.Context, target *models.Target, logger *slog.Logger) (State, error) {
	snapshots := e.persistence.Snapshots()

	// PENDING -> FETCHING
	result, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return StateFailed, fmt.Errorf("fetch: %w", err)
	}

	// FETCHING -> COMPARING: commit the observation, then decide from
	// the committed state rather than from this run's fetch alone, so a
	// pair left behind by a failed classification is picked up again.
	snapshot := &models.Snapshot{
		TargetID:    target.ID,
		Fingerprint: models.Fingerprint(result.Content),
		CapturedAt:  result.FetchedAt,
	}

	if _, err := snapshots.Commit(ctx, snapshot, result.Content); err != nil {
		return StateFailed, fmt.Errorf("commit snapshot: %w", err)
	}

	pending, err := snapshots.PendingComparison(ctx, target.ID)
	if err != nil {
		return StateFailed, fmt.Errorf("read comparison state: %w", err)
	}

	if !pending {
		// No unresolved pair: first run or unchanged content. A record
		// from an earlier run whose notification failed may still need
		// delivery.
		return e.resendUnnotified(ctx, target, logger)
	}

	// COMPARING -> CLASSIFYING against the committed pair.
	classification, err := e.classify(ctx, target)
	if err != nil {
		return StateFailed, err
	}

	// CLASSIFYING -> ROUTING
	return e.route(ctx, target, classification, logger)
}

// classify loads both sides of the committed snapshot pair and asks the
// classifier for a verdict.
func (e *Engine) classify(ctx context.Context, target *models.Target) (*ports.Classification, error) {
	snapshots := e.persistence.Snapshots()

	previous, err := snapshots.Previous(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}

	if previous == nil {
		return nil, fmt.Errorf("%w: pending comparison without prior snapshot for target %s",
			ErrDataConsistency, target.ID)
	}

	current, err := snapshots.Current(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load current snapshot: %w", err)
	}

	if current == nil {
		return nil, fmt.Errorf("%w: pending comparison without current snapshot for target %s",
			ErrDataConsistency, target.ID)
	}

	previousContent, err := snapshots.Content(ctx, previous.RawRef)
	if err != nil {
		return nil, fmt.Errorf("load previous content: %w", err)
	}

	currentContent, err := snapshots.Content(ctx, current.RawRef)
	if err != nil {
		return nil, fmt.Errorf("load current content: %w", err)
	}

	classification, err := e.classifier.Classify(ctx, &ports.ClassifyRequest{
		Target:          target,
		PreviousContent: previousContent,
		CurrentContent:  currentContent,
	})
	if err != nil {
		// The committed pair stays pending; the next run classifies the
		// same pair instead of re-deriving it.
		return nil, fmt.Errorf("classify: %w", err)
	}

	return classification, nil
}

// route applies the severity policy: none is a skip, below-threshold
// changes are recorded only, the rest are recorded and notified.
func (e *Engine) route(ctx context.Context, target *models.Target, classification *ports.Classification, logger *slog.Logger) (State, error) {
	snapshots := e.persistence.Snapshots()

	if classification.Severity == models.SeverityNone {
		if err := snapshots.MarkCompared(ctx, target.ID); err != nil {
			return StateFailed, fmt.Errorf("resolve comparison: %w", err)
		}

		return StateSkipped, nil
	}

	record := &models.ChangeRecord{
		ID:         uuid.New().String(),
		TargetID:   target.ID,
		DetectedAt: e.now().UTC(),
		Severity:   classification.Severity,
		Summary:    classification.Summary,
		KeyChanges: classification.KeyChanges,
	}

	if err := e.persistence.Changes().Append(ctx, record); err != nil {
		return StateFailed, fmt.Errorf("append change record: %w", err)
	}

	// The pair is resolved once the record exists; a notify failure
	// must not cause re-classification.
	if err := snapshots.MarkCompared(ctx, target.ID); err != nil {
		return StateFailed, fmt.Errorf("resolve comparison: %w", err)
	}

	e.publish(ctx, target.ID, events.ChangeDetected{
		BaseEvent:  events.NewBaseEvent(events.ChangeDetectedEvent, target.ID),
		ChangeID:   record.ID,
		Severity:   record.Severity,
		Summary:    record.Summary,
		DetectedAt: record.DetectedAt,
	})

	logger.InfoContext(ctx, "Change detected",
		"severity", record.Severity, "summary", record.Summary)

	if !record.Severity.AtLeast(e.threshold) {
		return StateDone, nil
	}

	// ROUTING -> NOTIFYING
	return e.notify(ctx, target, record)
}

// resendUnnotified handles the retry side of a failed notification: the
// record already exists, so deliver it instead of appending a twin.
func (e *Engine) resendUnnotified(ctx context.Context, target *models.Target, logger *slog.Logger) (State, error) {
	record, err := e.persistence.Changes().LatestUnnotified(ctx, target.ID, e.threshold)
	if err != nil {
		return StateFailed, fmt.Errorf("look up unnotified changes: %w", err)
	}

	if record == nil {
		return StateSkipped, nil
	}

	logger.InfoContext(ctx, "Resending undelivered notification",
		"change_id", record.ID, "detected_at", record.DetectedAt)

	return e.notify(ctx, target, record)
}

// notify delivers the record to the target's owner and flips the
// one-shot notified flag.
func (e *Engine) notify(ctx context.Context, target *models.Target, record *models.ChangeRecord) (State, error) {
	owner, err := e.persistence.Users().GetByID(ctx, target.OwnerID)
	if err != nil {
		return StateFailed, fmt.Errorf("load owner %s: %w", target.OwnerID, err)
	}

	notice := &ports.Notice{
		Target:     target,
		Change:     record,
		Recipient:  owner.Email,
		NotifyVia:  owner.NotifyVia,
		DetectedAt: record.DetectedAt,
	}

	if err := e.notifier.Send(ctx, notice); err != nil {
		// The record is retained unnotified; the next run resends.
		return StateFailed, fmt.Errorf("notify: %w", err)
	}

	if err := e.persistence.Changes().MarkNotified(ctx, target.ID, record.DetectedAt); err != nil {
		return StateFailed, fmt.Errorf("mark notified: %w", err)
	}

	e.publish(ctx, target.ID, events.NotificationSent{
		BaseEvent: events.NewBaseEvent(events.NotificationSentEvent, target.ID),
		ChangeID:  record.ID,
		Recipient: owner.Email,
		Channel:   string(owner.NotifyVia),
	})

	return StateDone, nil
}

// finish enforces the terminal contract: record the outcome, then
// reschedule or pause, regardless of how the run ended.
func (e *Engine) finish(ctx context.Context, target *models.Target, state State, runErr error, startedAt time.Time, logger *slog.Logger) *models.RunOutcome {
	now := e.now().UTC()
	targets := e.persistence.Targets()

	outcome := &models.RunOutcome{
		TargetID:   target.ID,
		FinishedAt: now,
	}

	switch state {
	case StateDone:
		outcome.Status = models.RunStatusSucceeded
	case StateSkipped:
		outcome.Status = models.RunStatusSkipped
	default:
		outcome.Status = models.RunStatusFailed
		outcome.Error = runErr.Error()
		outcome.Retryable = !ports.IsPermanent(runErr) && !errors.Is(runErr, ErrDataConsistency)
	}

	if err := targets.RecordRunOutcome(ctx, target.ID, outcome); err != nil {
		logger.ErrorContext(ctx, "Failed to record run outcome", "error", err)
	}

	switch {
	case outcome.Status != models.RunStatusFailed:
		if err := targets.Reschedule(ctx, target.ID, target.NextDueAfterSuccess(now)); err != nil {
			logger.ErrorContext(ctx, "Failed to reschedule target", "error", err)
		}
	case ports.IsPermanent(runErr):
		// Permanent upstream failures park the target until the owner acts.
		reason := fmt.Sprintf("auto-paused after permanent failure: %s", runErr)
		if err := targets.Pause(ctx, target.ID, reason); err != nil {
			logger.ErrorContext(ctx, "Failed to pause target", "error", err)
		}
	default:
		failures := target.FailureCount + 1
		if err := targets.Reschedule(ctx, target.ID, target.NextDueAfterFailure(now, failures)); err != nil {
			logger.ErrorContext(ctx, "Failed to reschedule target", "error", err)
		}
	}

	if runErr != nil {
		logger.WarnContext(ctx, "Run failed",
			"state", state, "retryable", outcome.Retryable,
			"duration", now.Sub(startedAt), "error", runErr)
	} else {
		logger.InfoContext(ctx, "Run finished",
			"state", state, "duration", now.Sub(startedAt))
	}

	return outcome
}

func (e *Engine) publishTerminal(ctx context.Context, target *models.Target, runID string, outcome *models.RunOutcome, startedAt time.Time) {
	duration := outcome.FinishedAt.Sub(startedAt)

	if outcome.Status == models.RunStatusFailed {
		e.publish(ctx, target.ID, events.RunFailed{
			BaseEvent: events.NewBaseEvent(events.RunFailedEvent, target.ID),
			RunID:     runID,
			Error:     outcome.Error,
			Retryable: outcome.Retryable,
			Duration:  duration,
		})

		return
	}

	e.publish(ctx, target.ID, events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, target.ID),
		RunID:     runID,
		Status:    outcome.Status,
		Duration:  duration,
	})
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
