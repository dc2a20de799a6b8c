package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// SnapshotRepository keeps one snapshot_states row per target plus
// content-addressed blobs in snapshot_blobs.
type SnapshotRepository struct {
	db *sql.DB
}

func (r *SnapshotRepository) loadState(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, targetID string,
) (current, prior *models.Snapshot, pending bool, err error) {
	var (
		curFp, curRef sql.NullString
		curAt         sql.NullTime
		priFp, priRef sql.NullString
		priAt         sql.NullTime
	)

	err = q.QueryRowContext(ctx, `
		SELECT current_fingerprint, current_captured_at, current_raw_ref,
		       prior_fingerprint, prior_captured_at, prior_raw_ref,
		       pending_comparison
		FROM snapshot_states WHERE target_id = $1`, targetID).
		Scan(&curFp, &curAt, &curRef, &priFp, &priAt, &priRef, &pending)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, false, nil
	}

	if err != nil {
		return nil, nil, false, err
	}

	if curFp.Valid {
		current = &models.Snapshot{TargetID: targetID, Fingerprint: curFp.String, CapturedAt: curAt.Time, RawRef: curRef.String}
	}

	if priFp.Valid {
		prior = &models.Snapshot{TargetID: targetID, Fingerprint: priFp.String, CapturedAt: priAt.Time, RawRef: priRef.String}
	}

	return current, prior, pending, nil
}

func (r *SnapshotRepository) Current(ctx context.Context, targetID string) (*models.Snapshot, error) {
	current, _, _, err := r.loadState(ctx, r.db, targetID)

	return current, err
}

func (r *SnapshotRepository) Previous(ctx context.Context, targetID string) (*models.Snapshot, error) {
	_, prior, _, err := r.loadState(ctx, r.db, targetID)

	return prior, err
}

func (r *SnapshotRepository) Commit(ctx context.Context, snapshot *models.Snapshot, content []byte) (*models.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot commit: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	current, prior, pending, err := r.loadState(ctx, tx, snapshot.TargetID)
	if err != nil {
		return nil, err
	}

	snapshot.RawRef = path.Join("raw", snapshot.TargetID, snapshot.Fingerprint[:16])

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_blobs (raw_ref, content) VALUES ($1, $2)
		ON CONFLICT (raw_ref) DO NOTHING`, snapshot.RawRef, content)
	if err != nil {
		return nil, err
	}

	newPrior, newPending := prior, pending
	if current != nil && current.Fingerprint != snapshot.Fingerprint {
		newPrior = current
		newPending = true
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_states (
			target_id, current_fingerprint, current_captured_at, current_raw_ref,
			prior_fingerprint, prior_captured_at, prior_raw_ref, pending_comparison
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (target_id) DO UPDATE SET
			current_fingerprint = EXCLUDED.current_fingerprint,
			current_captured_at = EXCLUDED.current_captured_at,
			current_raw_ref     = EXCLUDED.current_raw_ref,
			prior_fingerprint   = EXCLUDED.prior_fingerprint,
			prior_captured_at   = EXCLUDED.prior_captured_at,
			prior_raw_ref       = EXCLUDED.prior_raw_ref,
			pending_comparison  = EXCLUDED.pending_comparison`,
		snapshot.TargetID, snapshot.Fingerprint, snapshot.CapturedAt, snapshot.RawRef,
		nullableString(newPrior), nullableTime(newPrior), nullableRef(newPrior), newPending,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return current, nil
}

func nullableString(s *models.Snapshot) any {
	if s == nil {
		return nil
	}

	return s.Fingerprint
}

func nullableTime(s *models.Snapshot) any {
	if s == nil {
		return nil
	}

	return s.CapturedAt
}

func nullableRef(s *models.Snapshot) any {
	if s == nil {
		return nil
	}

	return s.RawRef
}

func (r *SnapshotRepository) Content(ctx context.Context, rawRef string) ([]byte, error) {
	var content []byte

	err := r.db.QueryRowContext(ctx, `SELECT content FROM snapshot_blobs WHERE raw_ref = $1`, rawRef).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrSnapshotNotFound
	}

	return content, err
}

func (r *SnapshotRepository) PendingComparison(ctx context.Context, targetID string) (bool, error) {
	_, _, pending, err := r.loadState(ctx, r.db, targetID)

	return pending, err
}

func (r *SnapshotRepository) MarkCompared(ctx context.Context, targetID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE snapshot_states SET pending_comparison = FALSE WHERE target_id = $1`, targetID)

	return err
}
