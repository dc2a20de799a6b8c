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

// ChangeRepository keeps one append-only history document per target
// under changes/.
type ChangeRepository struct {
	store *Persistence
}

func (r *ChangeRepository) historyPath(targetID string) string {
	return path.Join("changes", targetID+".json")
}

func (r *ChangeRepository) loadHistory(targetID string) ([]*models.ChangeRecord, error) {
	var records []*models.ChangeRecord

	err := r.store.readJSON(r.historyPath(targetID), &records)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *ChangeRepository) Append(ctx context.Context, record *models.ChangeRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	records, err := r.loadHistory(record.TargetID)
	if err != nil {
		return err
	}

	records = append(records, record)

	return r.store.writeJSON(r.historyPath(record.TargetID), records)
}

func (r *ChangeRepository) History(ctx context.Context, targetID string, limit int, before time.Time) ([]*models.ChangeRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records, err := r.loadHistory(targetID)
	if err != nil {
		return nil, err
	}

	// Newest-first; detected_at is strictly ordered within a target.
	sort.Slice(records, func(i, j int) bool {
		return records[i].DetectedAt.After(records[j].DetectedAt)
	})

	page := make([]*models.ChangeRecord, 0, limit)

	for _, record := range records {
		if !before.IsZero() && !record.DetectedAt.Before(before) {
			continue
		}

		page = append(page, record)
		if limit > 0 && len(page) >= limit {
			break
		}
	}

	return page, nil
}

func (r *ChangeRepository) LatestUnnotified(ctx context.Context, targetID string, threshold models.Severity) (*models.ChangeRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	records, err := r.loadHistory(targetID)
	if err != nil {
		return nil, err
	}

	var latest *models.ChangeRecord

	for _, record := range records {
		if record.Notified || !record.Severity.AtLeast(threshold) {
			continue
		}

		if latest == nil || record.DetectedAt.After(latest.DetectedAt) {
			latest = record
		}
	}

	return latest, nil
}

func (r *ChangeRepository) MarkNotified(ctx context.Context, targetID string, detectedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	records, err := r.loadHistory(targetID)
	if err != nil {
		return err
	}

	for _, record := range records {
		if record.DetectedAt.Equal(detectedAt) {
			record.Notified = true

			return r.store.writeJSON(r.historyPath(targetID), records)
		}
	}

	return persistence.ErrChangeNotFound
}
