package notifier

import (
	"context"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

// Mux dispatches each notice to the adapter matching the recipient's
// preferred channel.
type Mux struct {
	adapters map[models.NotifyChannel]ports.Notifier
	fallback ports.Notifier
}

// NewMux builds a channel router. fallback handles notices whose
// channel has no registered adapter.
func NewMux(fallback ports.Notifier) *Mux {
	return &Mux{
		adapters: make(map[models.NotifyChannel]ports.Notifier),
		fallback: fallback,
	}
}

// Register binds a channel to an adapter.
func (m *Mux) Register(channel models.NotifyChannel, adapter ports.Notifier) {
	m.adapters[channel] = adapter
}

func (m *Mux) Send(ctx context.Context, notice *ports.Notice) error {
	if adapter, ok := m.adapters[notice.NotifyVia]; ok {
		return adapter.Send(ctx, notice)
	}

	return m.fallback.Send(ctx, notice)
}
