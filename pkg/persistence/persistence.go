// Package persistence provides the data storage abstraction for
// targets, snapshots, change history and users.
package persistence

import (
	"context"
	"time"

	"github.com/vigilhq/vigil/pkg/models"
)

// TargetRepository is the registry of monitored targets. All mutations
// of a single target's scheduling fields are performed under that
// target's run lock, so implementations only need cross-target safety.
type TargetRepository interface {
	Create(ctx context.Context, target *models.Target) error
	GetByID(ctx context.Context, id string) (*models.Target, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Target, error)

	// ListDue returns active targets with next_due_at <= now, ordered
	// oldest-due-first so no target starves under sustained backlog.
	ListDue(ctx context.Context, now time.Time) ([]*models.Target, error)

	// Reschedule sets next_due_at. Rejects paused and deleted targets
	// with ErrInvalidTargetState.
	Reschedule(ctx context.Context, id string, nextDueAt time.Time) error

	// RecordRunOutcome stores the terminal disposition of a run,
	// updating last_run_at and the consecutive failure count.
	RecordRunOutcome(ctx context.Context, id string, outcome *models.RunOutcome) error

	// Pause moves a target to paused with an explanatory reason,
	// typically after a permanent upstream failure.
	Pause(ctx context.Context, id, reason string) error
	Resume(ctx context.Context, id string) error

	Update(ctx context.Context, target *models.Target) error

	// Delete soft-deletes: status becomes deleted, history is retained.
	Delete(ctx context.Context, id string) error
}

// SnapshotRepository owns the current/prior snapshot pair per target
// and the raw content each snapshot references.
type SnapshotRepository interface {
	Current(ctx context.Context, targetID string) (*models.Snapshot, error)
	Previous(ctx context.Context, targetID string) (*models.Snapshot, error)

	// Commit atomically swaps in the new snapshot and returns the prior
	// current one (nil on first-ever commit). A commit with an unchanged
	// fingerprint refreshes captured_at but does not rotate the prior
	// snapshot, so an unresolved comparison pair stays available.
	Commit(ctx context.Context, snapshot *models.Snapshot, content []byte) (*models.Snapshot, error)

	// Content resolves a snapshot's raw_ref to the stored raw bytes.
	Content(ctx context.Context, rawRef string) ([]byte, error)

	// PendingComparison reports whether the previous/current pair still
	// awaits classification. Set by a fingerprint-rotating Commit,
	// cleared by MarkCompared once routing resolves the pair.
	PendingComparison(ctx context.Context, targetID string) (bool, error)
	MarkCompared(ctx context.Context, targetID string) error
}

// ChangeRepository is the append-only change history per target.
type ChangeRepository interface {
	Append(ctx context.Context, record *models.ChangeRecord) error

	// History returns records newest-first. A zero before time means
	// "from the latest"; otherwise only records strictly older than
	// before are returned, which makes the cursor stable across calls.
	History(ctx context.Context, targetID string, limit int, before time.Time) ([]*models.ChangeRecord, error)

	// LatestUnnotified returns the newest record at or above the given
	// severity whose notification has not succeeded yet, or nil.
	LatestUnnotified(ctx context.Context, targetID string, threshold models.Severity) (*models.ChangeRecord, error)

	// MarkNotified sets the one-shot notified flag, identified by the
	// (target_id, detected_at) pair.
	MarkNotified(ctx context.Context, targetID string, detectedAt time.Time) error
}

// UserRepository stores target owners.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Persistence bundles the repositories behind one durable store.
type Persistence interface {
	Targets() TargetRepository
	Snapshots() SnapshotRepository
	Changes() ChangeRepository
	Users() UserRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
