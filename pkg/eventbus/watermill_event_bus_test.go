package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilhq/vigil/pkg/channels/gochannel"
	"github.com/vigilhq/vigil/pkg/events"
	"github.com/vigilhq/vigil/pkg/models"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.RunCompleted, 1)

	err := bus.Handle(events.RunCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.RunCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := events.RunCompleted{
		BaseEvent: events.NewBaseEvent(events.RunCompletedEvent, "target-1"),
		RunID:     "run-1",
		Status:    models.RunStatusSucceeded,
	}
	require.NoError(t, bus.Publish(ctx, "target-1", published))

	select {
	case got := <-received:
		assert.Equal(t, "target-1", got.TargetID)
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, models.RunStatusSucceeded, got.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// No handler registered for this type; publish must still succeed.
	err := bus.Publish(ctx, "target-1", events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, "target-1"),
	})
	assert.NoError(t, err)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
