package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/persistence/file"
	"github.com/vigilhq/vigil/pkg/ports"
)

type stubFetcher struct {
	content []byte
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(_ context.Context, _ *models.Target) (*ports.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return &ports.FetchResult{
		Content:    f.content,
		FetchedAt:  time.Now().UTC(),
		StatusCode: 200,
	}, nil
}

type stubClassifier struct {
	result  *ports.Classification
	err     error
	calls   int
	lastReq *ports.ClassifyRequest
}

func (c *stubClassifier) Classify(_ context.Context, req *ports.ClassifyRequest) (*ports.Classification, error) {
	c.calls++
	c.lastReq = req

	if c.err != nil {
		return nil, c.err
	}

	return c.result, nil
}

type stubNotifier struct {
	err        error
	calls      int
	lastNotice *ports.Notice
}

func (n *stubNotifier) Send(_ context.Context, notice *ports.Notice) error {
	n.calls++
	n.lastNotice = notice

	if n.err != nil {
		return n.err
	}

	return nil
}

type harness struct {
	engine     *Engine
	store      persistence.Persistence
	target     *models.Target
	fetcher    *stubFetcher
	classifier *stubClassifier
	notifier   *stubNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	owner := &models.User{
		ID:        "owner-1",
		Email:     "owner@example.com",
		NotifyVia: models.NotifyViaEmail,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Users().Create(ctx, owner))

	target := models.NewTarget("target-1", owner.ID, "https://example.com/profile",
		models.TargetTypeProfile, time.Hour)
	require.NoError(t, store.Targets().Create(ctx, target))

	h := &harness{
		store:      store,
		target:     target,
		fetcher:    &stubFetcher{content: []byte("baseline")},
		classifier: &stubClassifier{result: &ports.Classification{Severity: models.SeverityMajor, Summary: "changed"}},
		notifier:   &stubNotifier{},
	}

	h.engine = NewEngine(store, h.fetcher, h.classifier, h.notifier, nil,
		noop.NewTracerProvider().Tracer("test"), Config{}, log.NewDiscard())

	return h
}

// run reloads the target so each run sees current scheduling state,
// the way the scheduler hands targets to the engine.
func (h *harness) run(t *testing.T) *models.RunOutcome {
	t.Helper()

	target, err := h.store.Targets().GetByID(context.Background(), h.target.ID)
	require.NoError(t, err)

	return h.engine.Run(context.Background(), target)
}

func (h *harness) history(t *testing.T) []*models.ChangeRecord {
	t.Helper()

	records, err := h.store.Changes().History(context.Background(), h.target.ID, 100, time.Time{})
	require.NoError(t, err)

	return records
}

func (h *harness) reload(t *testing.T) *models.Target {
	t.Helper()

	target, err := h.store.Targets().GetByID(context.Background(), h.target.ID)
	require.NoError(t, err)

	return target
}

func TestEngine_FirstRunIsBaselineSkip(t *testing.T) {
	h := newHarness(t)

	outcome := h.run(t)

	assert.Equal(t, models.RunStatusSkipped, outcome.Status)
	assert.Zero(t, h.classifier.calls, "baseline must not be classified")
	assert.Zero(t, h.notifier.calls)
	assert.Empty(t, h.history(t))

	current, err := h.store.Snapshots().Current(context.Background(), h.target.ID)
	require.NoError(t, err)
	assert.NotNil(t, current, "baseline snapshot must be committed")
}

func TestEngine_UnchangedContentIsSkip(t *testing.T) {
	h := newHarness(t)

	h.run(t)
	outcome := h.run(t)

	assert.Equal(t, models.RunStatusSkipped, outcome.Status)
	assert.Zero(t, h.classifier.calls)
	assert.Zero(t, h.notifier.calls)
	assert.Empty(t, h.history(t))
}

func TestEngine_MajorChangeRecordsAndNotifies(t *testing.T) {
	h := newHarness(t)

	h.run(t)
	h.fetcher.content = []byte("updated profile")

	outcome := h.run(t)

	assert.Equal(t, models.RunStatusSucceeded, outcome.Status)
	assert.Equal(t, 1, h.classifier.calls)
	assert.Equal(t, 1, h.notifier.calls)
	assert.Equal(t, "owner@example.com", h.notifier.lastNotice.Recipient)

	records := h.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.SeverityMajor, records[0].Severity)
	assert.True(t, records[0].Notified)

	// The classifier saw the committed pair, not re-fetched content.
	assert.Equal(t, []byte("baseline"), h.classifier.lastReq.PreviousContent)
	assert.Equal(t, []byte("updated profile"), h.classifier.lastReq.CurrentContent)
}

func TestEngine_MinorChangeIsRecordedNotPushed(t *testing.T) {
	h := newHarness(t)
	h.classifier.result = &ports.Classification{Severity: models.SeverityMinor, Summary: "small tweak"}

	h.run(t)
	h.fetcher.content = []byte("slightly different")

	outcome := h.run(t)

	assert.Equal(t, models.RunStatusSucceeded, outcome.Status)
	assert.Zero(t, h.notifier.calls)

	records := h.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.SeverityMinor, records[0].Severity)
	assert.False(t, records[0].Notified)
}

func TestEngine_NoneVerdictIsSkipWithoutRecord(t *testing.T) {
	h := newHarness(t)
	h.classifier.result = &ports.Classification{Severity: models.SeverityNone, Summary: "noise"}

	h.run(t)
	h.fetcher.content = []byte("reordered noise")

	outcome := h.run(t)

	assert.Equal(t, models.RunStatusSkipped, outcome.Status)
	assert.Empty(t, h.history(t))
	assert.Zero(t, h.notifier.calls)
}

func TestEngine_ClassifyFailureRetriesSamePair(t *testing.T) {
	h := newHarness(t)

	h.run(t)
	h.fetcher.content = []byte("updated")
	h.classifier.err = ports.Transient(errors.New("model unavailable"))

	outcome := h.run(t)
	assert.Equal(t, models.RunStatusFailed, outcome.Status)
	assert.True(t, outcome.Retryable)
	assert.Empty(t, h.history(t), "failed classification must not leave a record")

	// Next sweep: same content, classifier healthy again. The engine
	// must classify the retained pair instead of skipping on the
	// unchanged fingerprint.
	h.classifier.err = nil

	outcome = h.run(t)
	assert.Equal(t, models.RunStatusSucceeded, outcome.Status)
	assert.Equal(t, 2, h.classifier.calls)
	assert.Equal(t, []byte("baseline"), h.classifier.lastReq.PreviousContent)
	assert.Equal(t, []byte("updated"), h.classifier.lastReq.CurrentContent)
	require.Len(t, h.history(t), 1)
}

func TestEngine_NotifyFailureResendsWithoutDuplicate(t *testing.T) {
	h := newHarness(t)

	h.run(t)
	h.fetcher.content = []byte("updated")
	h.notifier.err = ports.Transient(errors.New("smtp down"))

	outcome := h.run(t)
	assert.Equal(t, models.RunStatusFailed, outcome.Status)
	assert.True(t, outcome.Retryable)

	records := h.history(t)
	require.Len(t, records, 1, "record persists through notify failure")
	assert.False(t, records[0].Notified)

	firstDetectedAt := records[0].DetectedAt

	// Next sweep: content unchanged, relay recovered. The existing
	// record must be resent, not re-appended or re-classified.
	h.notifier.err = nil

	outcome = h.run(t)
	assert.Equal(t, models.RunStatusSucceeded, outcome.Status)
	assert.Equal(t, 1, h.classifier.calls)
	assert.Equal(t, 2, h.notifier.calls)

	records = h.history(t)
	require.Len(t, records, 1)
	assert.True(t, records[0].Notified)
	assert.True(t, records[0].DetectedAt.Equal(firstDetectedAt))
}

func TestEngine_TransientFetchFailureBacksOff(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = ports.Transient(errors.New("gateway timeout"))

	before := time.Now()
	outcome := h.run(t)

	assert.Equal(t, models.RunStatusFailed, outcome.Status)
	assert.True(t, outcome.Retryable)

	target := h.reload(t)
	assert.Equal(t, models.TargetStatusActive, target.Status)
	assert.Equal(t, 1, target.FailureCount)
	assert.True(t, target.NextDueAt.After(before.Add(50*time.Minute)),
		"next due should respect the backed-off frequency")

	// A later success resets the failure count.
	h.fetcher.err = nil

	h.run(t)
	assert.Zero(t, h.reload(t).FailureCount)
}

func TestEngine_PermanentFetchFailurePausesTarget(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = ports.Permanent(errors.New("410 gone"))

	outcome := h.run(t)

	assert.Equal(t, models.RunStatusFailed, outcome.Status)
	assert.False(t, outcome.Retryable)

	target := h.reload(t)
	assert.Equal(t, models.TargetStatusPaused, target.Status)
	assert.Contains(t, target.StatusReason, "permanent failure")
	assert.Zero(t, h.notifier.calls)
	assert.Empty(t, h.history(t))
}

func TestEngine_TerminalContractAlwaysRecordsOutcome(t *testing.T) {
	h := newHarness(t)

	h.run(t)

	target := h.reload(t)
	require.NotNil(t, target.LastRunAt)
	assert.True(t, target.NextDueAt.After(*target.LastRunAt),
		"next due must be strictly after last run")
}
