// Package web provides the HTTP handlers and request/response types
// for the target management API.
package web

import (
	"time"

	"github.com/vigilhq/vigil/pkg/models"
)

// CreateUserRequest registers a notification recipient.
type CreateUserRequest struct {
	Email     string `json:"email"      validate:"required,email"`
	NotifyVia string `json:"notify_via" validate:"omitempty,oneof=email console"`
}

// CreateTargetRequest registers a new monitoring target. Frequency is a
// Go duration string ("30m", "1h"); a cron expression overrides it.
type CreateTargetRequest struct {
	OwnerID        string `json:"owner_id"        validate:"required"`
	URL            string `json:"url"             validate:"required,url"`
	Type           string `json:"type"            validate:"required,oneof=profile company website"`
	Frequency      string `json:"frequency"       validate:"required_without=CronExpression"`
	CronExpression string `json:"cron_expression,omitempty"`
}

// UpdateTargetRequest carries a partial update. Status accepts "active"
// (resume) and "paused".
type UpdateTargetRequest struct {
	Frequency      *string `json:"frequency,omitempty"`
	CronExpression *string `json:"cron_expression,omitempty"`
	Status         *string `json:"status,omitempty" validate:"omitempty,oneof=active paused"`
	StatusReason   *string `json:"status_reason,omitempty"`
}

// TargetResponse is the API view of a target.
type TargetResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	URL            string     `json:"url"`
	Type           string     `json:"type"`
	Frequency      string     `json:"frequency"`
	CronExpression string     `json:"cron_expression,omitempty"`
	Status         string     `json:"status"`
	StatusReason   string     `json:"status_reason,omitempty"`
	NextDueAt      time.Time  `json:"next_due_at"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	FailureCount   int        `json:"failure_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TransformTargetResponse converts a target to its API view, rendering
// the frequency as a duration string.
func TransformTargetResponse(target *models.Target) TargetResponse {
	return TargetResponse{
		ID:             target.ID,
		OwnerID:        target.OwnerID,
		URL:            target.URL,
		Type:           string(target.Type),
		Frequency:      target.Frequency.String(),
		CronExpression: target.CronExpression,
		Status:         string(target.Status),
		StatusReason:   target.StatusReason,
		NextDueAt:      target.NextDueAt,
		LastRunAt:      target.LastRunAt,
		FailureCount:   target.FailureCount,
		CreatedAt:      target.CreatedAt,
		UpdatedAt:      target.UpdatedAt,
	}
}

// TransformTargetResponses converts a list of targets.
func TransformTargetResponses(targets []*models.Target) []TargetResponse {
	out := make([]TargetResponse, 0, len(targets))
	for _, target := range targets {
		out = append(out, TransformTargetResponse(target))
	}

	return out
}
