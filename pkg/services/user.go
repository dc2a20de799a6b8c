package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// User is the service behind user registration.
type User struct {
	persistence persistence.Persistence
}

// NewUser creates the user service.
func NewUser(persistence persistence.Persistence) *User {
	return &User{persistence: persistence}
}

// Register stores a new user. The email must be unique.
func (s *User) Register(ctx context.Context, email string, notifyVia models.NotifyChannel) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}

	if notifyVia == "" {
		notifyVia = models.NotifyViaEmail
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		NotifyVia: notifyVia,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.persistence.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// FetchByID loads one user.
func (s *User) FetchByID(ctx context.Context, id string) (*models.User, error) {
	return s.persistence.Users().GetByID(ctx, id)
}
