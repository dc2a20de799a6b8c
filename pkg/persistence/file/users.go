package file

import (
	"context"
	"os"
	"path"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// UserRepository handles user documents under users/.
type UserRepository struct {
	store *Persistence
}

func (r *UserRepository) userPath(id string) string {
	return path.Join("users", id+".json")
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, err := r.findByEmail(user.Email)
	if err != nil {
		return err
	}

	if existing != nil {
		return persistence.ErrUserAlreadyExists
	}

	return r.store.writeJSON(r.userPath(user.ID), user)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var user models.User

	err := r.store.readJSON(r.userPath(id), &user)
	if os.IsNotExist(err) {
		return nil, persistence.ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, err := r.findByEmail(email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, persistence.ErrUserNotFound
	}

	return user, nil
}

func (r *UserRepository) findByEmail(email string) (*models.User, error) {
	ids, err := r.store.listDir("users")
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		var user models.User
		if err := r.store.readJSON(r.userPath(id), &user); err != nil {
			return nil, err
		}

		if user.Email == email {
			return &user, nil
		}
	}

	return nil, nil
}
