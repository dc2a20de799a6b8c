package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/persistence"
)

// Target is the service behind target registration and management.
type Target struct {
	persistence persistence.Persistence
}

// NewTarget creates the target service.
func NewTarget(persistence persistence.Persistence) *Target {
	return &Target{persistence: persistence}
}

// HealthCheck reports the health of the persistence layer.
func (s *Target) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// RegisterTargetInput describes a new monitoring target.
type RegisterTargetInput struct {
	OwnerID        string
	URL            string
	Type           models.TargetType
	Frequency      time.Duration
	CronExpression string
}

// Register validates and stores a new target, due immediately.
func (s *Target) Register(ctx context.Context, input RegisterTargetInput) (*models.Target, error) {
	if input.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	if input.URL == "" {
		return nil, ErrEmptyTargetURL
	}

	if input.Frequency <= 0 && input.CronExpression == "" {
		return nil, ErrInvalidFrequency
	}

	if _, err := s.persistence.Users().GetByID(ctx, input.OwnerID); err != nil {
		if persistence.IsUserNotFound(err) {
			return nil, ErrOwnerNotFound
		}

		return nil, fmt.Errorf("look up owner: %w", err)
	}

	target := models.NewTarget(uuid.New().String(), input.OwnerID, input.URL,
		input.Type, input.Frequency)
	target.CronExpression = input.CronExpression

	if err := target.Validate(); err != nil {
		return nil, err
	}

	if err := s.persistence.Targets().Create(ctx, target); err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}

	return target, nil
}

// FetchByID loads one target.
func (s *Target) FetchByID(ctx context.Context, id string) (*models.Target, error) {
	return s.persistence.Targets().GetByID(ctx, id)
}

// ListByOwner returns all of an owner's targets, soft-deleted excluded.
func (s *Target) ListByOwner(ctx context.Context, ownerID string) ([]*models.Target, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}

	return s.persistence.Targets().ListByOwner(ctx, ownerID)
}

// UpdateScheduleInput carries a partial cadence update.
type UpdateScheduleInput struct {
	Frequency      *time.Duration
	CronExpression *string
}

// UpdateSchedule changes a target's check cadence.
func (s *Target) UpdateSchedule(ctx context.Context, id string, input UpdateScheduleInput) (*models.Target, error) {
	target, err := s.persistence.Targets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Frequency != nil {
		if *input.Frequency <= 0 {
			return nil, ErrInvalidFrequency
		}

		target.Frequency = *input.Frequency
	}

	if input.CronExpression != nil {
		target.CronExpression = *input.CronExpression
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}

	if err := s.persistence.Targets().Update(ctx, target); err != nil {
		return nil, fmt.Errorf("update target: %w", err)
	}

	return target, nil
}

// Pause suspends monitoring at the owner's request.
func (s *Target) Pause(ctx context.Context, id, reason string) error {
	if reason == "" {
		reason = "paused by owner"
	}

	return s.persistence.Targets().Pause(ctx, id, reason)
}

// Resume reactivates a paused target, due immediately.
func (s *Target) Resume(ctx context.Context, id string) error {
	target, err := s.persistence.Targets().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if target.Status != models.TargetStatusPaused {
		return ErrTargetNotPaused
	}

	return s.persistence.Targets().Resume(ctx, id)
}

// Delete soft-deletes a target; change history stays readable.
func (s *Target) Delete(ctx context.Context, id string) error {
	return s.persistence.Targets().Delete(ctx, id)
}

// ListChanges pages through a target's change history, newest first.
// A zero before means "from the latest".
func (s *Target) ListChanges(ctx context.Context, targetID string, limit int, before time.Time) ([]*models.ChangeRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	if limit > 100 {
		limit = 100
	}

	if _, err := s.persistence.Targets().GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	return s.persistence.Changes().History(ctx, targetID, limit, before)
}
