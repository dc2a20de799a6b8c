package file

import (
	"context"
	"os"
	"path"
	"sort"
	"time"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// TargetRepository handles target documents under targets/.
type TargetRepository struct {
	store *Persistence
}

func (r *TargetRepository) targetPath(id string) string {
	return path.Join("targets", id+".json")
}

func (r *TargetRepository) load(id string) (*models.Target, error) {
	var target models.Target

	err := r.store.readJSON(r.targetPath(id), &target)
	if os.IsNotExist(err) {
		return nil, persistence.NewTargetError("Get", id, persistence.ErrTargetNotFound)
	}

	if err != nil {
		return nil, persistence.NewTargetError("Get", id, err)
	}

	return &target, nil
}

func (r *TargetRepository) Create(ctx context.Context, target *models.Target) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := os.Stat(path.Join(r.store.root, r.targetPath(target.ID))); err == nil {
		return persistence.NewTargetError("Create", target.ID, persistence.ErrTargetAlreadyExists)
	}

	return r.store.writeJSON(r.targetPath(target.ID), target)
}

func (r *TargetRepository) GetByID(ctx context.Context, id string) (*models.Target, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.load(id)
}

func (r *TargetRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Target, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.listDir("targets")
	if err != nil {
		return nil, err
	}

	targets := make([]*models.Target, 0)

	for _, id := range ids {
		target, err := r.load(id)
		if err != nil {
			return nil, err
		}

		if target.OwnerID != ownerID || target.Status == models.TargetStatusDeleted {
			continue
		}

		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].CreatedAt.Before(targets[j].CreatedAt)
	})

	return targets, nil
}

func (r *TargetRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Target, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	ids, err := r.store.listDir("targets")
	if err != nil {
		return nil, err
	}

	due := make([]*models.Target, 0)

	for _, id := range ids {
		target, err := r.load(id)
		if err != nil {
			return nil, err
		}

		if target.IsDue(now) {
			due = append(due, target)
		}
	}

	// Oldest-due-first, the scheduler's fairness order.
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextDueAt.Before(due[j].NextDueAt)
	})

	return due, nil
}

func (r *TargetRepository) Reschedule(ctx context.Context, id string, nextDueAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, err := r.load(id)
	if err != nil {
		return err
	}

	if target.Status != models.TargetStatusActive {
		return persistence.NewTargetError("Reschedule", id, persistence.ErrInvalidTargetState)
	}

	target.NextDueAt = nextDueAt
	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(id), target)
}

func (r *TargetRepository) RecordRunOutcome(ctx context.Context, id string, outcome *models.RunOutcome) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, err := r.load(id)
	if err != nil {
		return err
	}

	finishedAt := outcome.FinishedAt
	target.LastRunAt = &finishedAt

	if outcome.Status == models.RunStatusFailed && outcome.Retryable {
		target.FailureCount++
	} else {
		target.FailureCount = 0
	}

	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(id), target)
}

func (r *TargetRepository) Pause(ctx context.Context, id, reason string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, err := r.load(id)
	if err != nil {
		return err
	}

	if target.Status == models.TargetStatusDeleted {
		return persistence.NewTargetError("Pause", id, persistence.ErrInvalidTargetState)
	}

	target.Status = models.TargetStatusPaused
	target.StatusReason = reason
	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(id), target)
}

func (r *TargetRepository) Resume(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, err := r.load(id)
	if err != nil {
		return err
	}

	if target.Status != models.TargetStatusPaused {
		return persistence.NewTargetError("Resume", id, persistence.ErrInvalidTargetState)
	}

	target.Status = models.TargetStatusActive
	target.StatusReason = ""
	target.FailureCount = 0
	target.NextDueAt = time.Now().UTC()
	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(id), target)
}

func (r *TargetRepository) Update(ctx context.Context, target *models.Target) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.load(target.ID); err != nil {
		return err
	}

	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(target.ID), target)
}

func (r *TargetRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	target, err := r.load(id)
	if err != nil {
		return err
	}

	target.Status = models.TargetStatusDeleted
	target.UpdatedAt = time.Now().UTC()

	return r.store.writeJSON(r.targetPath(id), target)
}
