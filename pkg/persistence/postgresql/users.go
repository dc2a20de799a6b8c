package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// UserRepository handles user rows.
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, notify_via, created_at)
		VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.NotifyVia, user.CreatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return persistence.ErrUserAlreadyExists
	}

	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, notify_via, created_at FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, notify_via, created_at FROM users WHERE email = $1`, email))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.Email, &user.NotifyVia, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}
