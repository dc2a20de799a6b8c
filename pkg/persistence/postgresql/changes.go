package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// ChangeRepository handles the append-only change history.
type ChangeRepository struct {
	db *sql.DB
}

func (r *ChangeRepository) Append(ctx context.Context, record *models.ChangeRecord) error {
	keyChanges, err := json.Marshal(record.KeyChanges)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO changes (id, target_id, detected_at, severity, summary, key_changes, notified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.TargetID, record.DetectedAt, record.Severity,
		record.Summary, keyChanges, record.Notified,
	)

	return err
}

func (r *ChangeRepository) History(ctx context.Context, targetID string, limit int, before time.Time) ([]*models.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, target_id, detected_at, severity, summary, key_changes, notified
		FROM changes WHERE target_id = $1`
	args := []any{targetID}

	if !before.IsZero() {
		query += ` AND detected_at < $2`
		args = append(args, before)
	}

	query += ` ORDER BY detected_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.ChangeRecord, 0, limit)

	for rows.Next() {
		record, err := scanChange(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *ChangeRepository) LatestUnnotified(ctx context.Context, targetID string, threshold models.Severity) (*models.ChangeRecord, error) {
	severities := []string{string(models.SeverityMajor)}
	if threshold == models.SeverityMinor {
		severities = append(severities, string(models.SeverityMinor))
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, target_id, detected_at, severity, summary, key_changes, notified
		FROM changes
		WHERE target_id = $1 AND notified = FALSE AND severity = ANY($2)
		ORDER BY detected_at DESC LIMIT 1`,
		targetID, pq.Array(severities),
	)

	record, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *ChangeRepository) MarkNotified(ctx context.Context, targetID string, detectedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE changes SET notified = TRUE
		WHERE target_id = $1 AND detected_at = $2`, targetID, detectedAt)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return persistence.ErrChangeNotFound
	}

	return nil
}

func scanChange(row interface{ Scan(...any) error }) (*models.ChangeRecord, error) {
	var (
		record     models.ChangeRecord
		keyChanges []byte
	)

	err := row.Scan(
		&record.ID, &record.TargetID, &record.DetectedAt, &record.Severity,
		&record.Summary, &keyChanges, &record.Notified,
	)
	if err != nil {
		return nil, err
	}

	if len(keyChanges) > 0 {
		if err := json.Unmarshal(keyChanges, &record.KeyChanges); err != nil {
			return nil, err
		}
	}

	return &record, nil
}
