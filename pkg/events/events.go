// Package events defines the run lifecycle events published on the
// event bus. Consumers include audit sinks and future alerting.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/vigilhq/vigil/pkg/models"
)

type EventType string

// Topic is the single stream all run lifecycle events share.
const Topic = "vigil.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent       EventType = "run.started"
	RunCompletedEvent     EventType = "run.completed"
	RunFailedEvent        EventType = "run.failed"
	ChangeDetectedEvent   EventType = "change.detected"
	NotificationSentEvent EventType = "notification.sent"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	TargetID  string         `json:"target_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RunStarted is published when a run passes the lock gate and begins
// fetching.
type RunStarted struct {
	BaseEvent

	RunID     string `json:"run_id"`
	TargetURL string `json:"target_url"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunCompleted is published on DONE and SKIPPED terminals.
type RunCompleted struct {
	BaseEvent

	RunID    string           `json:"run_id"`
	Status   models.RunStatus `json:"status"`
	Duration time.Duration    `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// RunFailed is published on the FAILED terminal.
type RunFailed struct {
	BaseEvent

	RunID     string        `json:"run_id"`
	Error     string        `json:"error"`
	Retryable bool          `json:"retryable"`
	Duration  time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

// ChangeDetected is published when routing appends a ChangeRecord.
type ChangeDetected struct {
	BaseEvent

	ChangeID   string          `json:"change_id"`
	Severity   models.Severity `json:"severity"`
	Summary    string          `json:"summary"`
	DetectedAt time.Time       `json:"detected_at"`
}

func (e ChangeDetected) GetType() EventType {
	return ChangeDetectedEvent
}

// NotificationSent is published after a notice is delivered and the
// record marked notified.
type NotificationSent struct {
	BaseEvent

	ChangeID  string `json:"change_id"`
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
}

func (e NotificationSent) GetType() EventType {
	return NotificationSentEvent
}

func NewBaseEvent(eventType EventType, targetID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TargetID:  targetID,
		Metadata:  make(map[string]any),
	}
}
