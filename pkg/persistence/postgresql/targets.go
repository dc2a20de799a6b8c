package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// TargetRepository handles target rows.
type TargetRepository struct {
	db *sql.DB
}

const targetColumns = `id, owner_id, url, target_type, frequency_ns, cron_expression,
	status, status_reason, next_due_at, last_run_at, failure_count, created_at, updated_at`

func scanTarget(row interface{ Scan(...any) error }) (*models.Target, error) {
	var (
		target      models.Target
		frequencyNs int64
		lastRunAt   sql.NullTime
	)

	err := row.Scan(
		&target.ID, &target.OwnerID, &target.URL, &target.Type, &frequencyNs,
		&target.CronExpression, &target.Status, &target.StatusReason,
		&target.NextDueAt, &lastRunAt, &target.FailureCount,
		&target.CreatedAt, &target.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	target.Frequency = time.Duration(frequencyNs)
	if lastRunAt.Valid {
		target.LastRunAt = &lastRunAt.Time
	}

	return &target, nil
}

func (r *TargetRepository) Create(ctx context.Context, target *models.Target) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO targets (`+targetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		target.ID, target.OwnerID, target.URL, target.Type, int64(target.Frequency),
		target.CronExpression, target.Status, target.StatusReason,
		target.NextDueAt, target.LastRunAt, target.FailureCount,
		target.CreatedAt, target.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return persistence.NewTargetError("Create", target.ID, persistence.ErrTargetAlreadyExists)
	}

	if err != nil {
		return persistence.NewTargetError("Create", target.ID, err)
	}

	return nil
}

func (r *TargetRepository) GetByID(ctx context.Context, id string) (*models.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = $1`, id)

	target, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewTargetError("Get", id, persistence.ErrTargetNotFound)
	}

	if err != nil {
		return nil, persistence.NewTargetError("Get", id, err)
	}

	return target, nil
}

func (r *TargetRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Target, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+targetColumns+` FROM targets
		WHERE owner_id = $1 AND status <> 'deleted'
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTargets(rows)
}

func (r *TargetRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Target, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+targetColumns+` FROM targets
		WHERE status = 'active' AND next_due_at <= $1
		ORDER BY next_due_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTargets(rows)
}

func collectTargets(rows *sql.Rows) ([]*models.Target, error) {
	targets := make([]*models.Target, 0)

	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}

		targets = append(targets, target)
	}

	return targets, rows.Err()
}

func (r *TargetRepository) Reschedule(ctx context.Context, id string, nextDueAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET next_due_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`, id, nextDueAt)
	if err != nil {
		return persistence.NewTargetError("Reschedule", id, err)
	}

	return r.checkScheduleUpdate(ctx, "Reschedule", id, result)
}

func (r *TargetRepository) RecordRunOutcome(ctx context.Context, id string, outcome *models.RunOutcome) error {
	retryableFailure := outcome.Status == models.RunStatusFailed && outcome.Retryable

	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET
			last_run_at = $2,
			failure_count = CASE WHEN $3 THEN failure_count + 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1`, id, outcome.FinishedAt, retryableFailure)
	if err != nil {
		return persistence.NewTargetError("RecordRunOutcome", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.NewTargetError("RecordRunOutcome", id, persistence.ErrTargetNotFound)
	}

	return nil
}

// checkScheduleUpdate distinguishes a missing target from one whose
// state forbids rescheduling.
func (r *TargetRepository) checkScheduleUpdate(ctx context.Context, op, id string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected > 0 {
		return nil
	}

	var status string

	err = r.db.QueryRowContext(ctx, `SELECT status FROM targets WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewTargetError(op, id, persistence.ErrTargetNotFound)
	}

	if err != nil {
		return persistence.NewTargetError(op, id, err)
	}

	return persistence.NewTargetError(op, id, persistence.ErrInvalidTargetState)
}

func (r *TargetRepository) Pause(ctx context.Context, id, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET status = 'paused', status_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'deleted'`, id, reason)
	if err != nil {
		return persistence.NewTargetError("Pause", id, err)
	}

	return r.checkScheduleUpdate(ctx, "Pause", id, result)
}

func (r *TargetRepository) Resume(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET
			status = 'active', status_reason = '', failure_count = 0,
			next_due_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'paused'`, id)
	if err != nil {
		return persistence.NewTargetError("Resume", id, err)
	}

	return r.checkScheduleUpdate(ctx, "Resume", id, result)
}

func (r *TargetRepository) Update(ctx context.Context, target *models.Target) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET
			frequency_ns = $2, cron_expression = $3, status = $4,
			status_reason = $5, next_due_at = $6, updated_at = NOW()
		WHERE id = $1`,
		target.ID, int64(target.Frequency), target.CronExpression,
		target.Status, target.StatusReason, target.NextDueAt,
	)
	if err != nil {
		return persistence.NewTargetError("Update", target.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.NewTargetError("Update", target.ID, persistence.ErrTargetNotFound)
	}

	return nil
}

func (r *TargetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE targets SET status = 'deleted', updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return persistence.NewTargetError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.NewTargetError("Delete", id, persistence.ErrTargetNotFound)
	}

	return nil
}
