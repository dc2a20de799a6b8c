// Package models defines the core domain models for change monitoring.
package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// TargetType classifies the kind of resource being monitored.
type TargetType string

const (
	TargetTypeProfile TargetType = "profile"
	TargetTypeCompany TargetType = "company"
	TargetTypeWebsite TargetType = "website"
)

// TargetStatus represents the lifecycle state of a monitored target.
type TargetStatus string

const (
	TargetStatusActive TargetStatus = "active" // Swept by the scheduler
	TargetStatusPaused TargetStatus = "paused" // Requires owner action to resume
	TargetStatusDeleted TargetStatus = "deleted" // Soft-deleted, history retained
)

// Target represents a monitored resource with a check cadence.
type Target struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"owner_id"   validate:"required"`
	URL     string     `json:"url"        validate:"required,url"`
	Type    TargetType `json:"type"       validate:"required,oneof=profile company website"`

	// Frequency is the desired interval between checks. When
	// CronExpression is set it takes precedence over Frequency.
	Frequency      time.Duration `json:"frequency"                 validate:"required"`
	CronExpression string        `json:"cron_expression,omitempty"`

	Status       TargetStatus `json:"status"`
	StatusReason string       `json:"status_reason,omitempty"`

	// NextDueAt is the precomputed next check time. It allows efficient
	// queries for due targets without per-target timers. Mutated only by
	// the scheduler and the workflow engine.
	NextDueAt time.Time  `json:"next_due_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// FailureCount counts consecutive retryable failures and drives
	// exponential backoff of NextDueAt.
	FailureCount int `json:"failure_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	// ErrInvalidTarget is returned when target validation fails.
	ErrInvalidTarget = errors.New("invalid target configuration")

	// ErrInvalidCronExpression is returned for an unparseable cron cadence.
	ErrInvalidCronExpression = errors.New("invalid cron expression")
)

// maxBackoffMultiplier caps the exponential backoff applied to
// NextDueAt after consecutive retryable failures.
const maxBackoffMultiplier = 32

// NewTarget creates an active target with the first check due immediately.
func NewTarget(id, ownerID, url string, targetType TargetType, frequency time.Duration) *Target {
	now := time.Now().UTC()

	return &Target{
		ID:        id,
		OwnerID:   ownerID,
		URL:       url,
		Type:      targetType,
		Frequency: frequency,
		Status:    TargetStatusActive,
		NextDueAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the target configuration, including the optional cron
// cadence.
func (t *Target) Validate() error {
	if t.OwnerID == "" || t.URL == "" {
		return ErrInvalidTarget
	}

	if t.Frequency <= 0 && t.CronExpression == "" {
		return ErrInvalidTarget
	}

	if t.CronExpression != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(t.CronExpression); err != nil {
			return ErrInvalidCronExpression
		}
	}

	switch t.Type {
	case TargetTypeProfile, TargetTypeCompany, TargetTypeWebsite:
		return nil
	default:
		return ErrInvalidTarget
	}
}

// IsDue checks whether this target is due for a check at the given time.
func (t *Target) IsDue(now time.Time) bool {
	return t.Status == TargetStatusActive && !t.NextDueAt.After(now)
}

// NextDueAfterSuccess computes the next check time following a
// successful run at referenceTime. The cron cadence wins when set.
func (t *Target) NextDueAfterSuccess(referenceTime time.Time) time.Time {
	if t.CronExpression != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if schedule, err := parser.Parse(t.CronExpression); err == nil {
			return schedule.Next(referenceTime)
		}
	}

	return referenceTime.Add(t.Frequency)
}

// NextDueAfterFailure computes the backed-off next check time after a
// retryable failure. failures is the consecutive failure count
// including the one that just happened.
func (t *Target) NextDueAfterFailure(referenceTime time.Time, failures int) time.Time {
	multiplier := 1
	for i := 1; i < failures; i++ {
		if multiplier >= maxBackoffMultiplier {
			break
		}

		multiplier *= 2
	}

	return referenceTime.Add(t.Frequency * time.Duration(multiplier))
}
