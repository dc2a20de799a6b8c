package file

import (
	"context"
	"os"
	"path"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// SnapshotRepository keeps one state document per target under
// snapshots/, holding the current/previous snapshot pair and the
// pending-comparison marker, plus raw content blobs under raw/.
type SnapshotRepository struct {
	store *Persistence
}

type snapshotState struct {
	Current           *models.Snapshot `json:"current,omitempty"`
	Previous          *models.Snapshot `json:"previous,omitempty"`
	PendingComparison bool             `json:"pending_comparison"`
}

func (r *SnapshotRepository) statePath(targetID string) string {
	return path.Join("snapshots", targetID+".json")
}

func (r *SnapshotRepository) loadState(targetID string) (*snapshotState, error) {
	var state snapshotState

	err := r.store.readJSON(r.statePath(targetID), &state)
	if os.IsNotExist(err) {
		return &snapshotState{}, nil
	}

	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (r *SnapshotRepository) Current(ctx context.Context, targetID string) (*models.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	state, err := r.loadState(targetID)
	if err != nil {
		return nil, err
	}

	return state.Current, nil
}

func (r *SnapshotRepository) Previous(ctx context.Context, targetID string) (*models.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	state, err := r.loadState(targetID)
	if err != nil {
		return nil, err
	}

	return state.Previous, nil
}

func (r *SnapshotRepository) Commit(ctx context.Context, snapshot *models.Snapshot, content []byte) (*models.Snapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, err := r.loadState(snapshot.TargetID)
	if err != nil {
		return nil, err
	}

	// Content-addressed blob: identical fingerprints share one file,
	// which makes re-committing unchanged content idempotent.
	snapshot.RawRef = path.Join("raw", snapshot.TargetID, snapshot.Fingerprint[:16])
	if err := r.store.writeRaw(snapshot.RawRef, content); err != nil {
		return nil, err
	}

	old := state.Current

	switch {
	case old == nil:
		state.Current = snapshot
	case old.Fingerprint == snapshot.Fingerprint:
		// Unchanged content: refresh captured_at only. An unresolved
		// previous/current pair stays in place for classify retries.
		state.Current = snapshot
	default:
		state.Previous = old
		state.Current = snapshot
		state.PendingComparison = true
	}

	if err := r.store.writeJSON(r.statePath(snapshot.TargetID), state); err != nil {
		return nil, err
	}

	return old, nil
}

func (r *SnapshotRepository) Content(ctx context.Context, rawRef string) ([]byte, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	data, err := r.store.readRaw(rawRef)
	if os.IsNotExist(err) {
		return nil, persistence.ErrSnapshotNotFound
	}

	return data, err
}

func (r *SnapshotRepository) PendingComparison(ctx context.Context, targetID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	state, err := r.loadState(targetID)
	if err != nil {
		return false, err
	}

	return state.PendingComparison, nil
}

func (r *SnapshotRepository) MarkCompared(ctx context.Context, targetID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, err := r.loadState(targetID)
	if err != nil {
		return err
	}

	state.PendingComparison = false

	return r.store.writeJSON(r.statePath(targetID), state)
}
