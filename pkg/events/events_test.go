package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vigilhq/vigil/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(RunStartedEvent, "target-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, RunStartedEvent, event.Type)
	assert.Equal(t, "target-1", event.TargetID)
	assert.WithinDuration(t, time.Now(), event.Timestamp, 5*time.Second)
	assert.NotNil(t, event.Metadata)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, RunStartedEvent, RunStarted{}.GetType())
	assert.Equal(t, RunCompletedEvent, RunCompleted{}.GetType())
	assert.Equal(t, RunFailedEvent, RunFailed{}.GetType())
	assert.Equal(t, ChangeDetectedEvent, ChangeDetected{}.GetType())
	assert.Equal(t, NotificationSentEvent, NotificationSent{}.GetType())
}

func TestRunCompletedCarriesStatus(t *testing.T) {
	event := RunCompleted{
		BaseEvent: NewBaseEvent(RunCompletedEvent, "target-1"),
		RunID:     "run-1",
		Status:    models.RunStatusSkipped,
	}

	assert.Equal(t, models.RunStatusSkipped, event.Status)
}
