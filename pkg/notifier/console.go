package notifier

import (
	"context"
	"log/slog"

	"github.com/vigilhq/vigil/pkg/ports"
)

// ConsoleNotifier logs notices instead of delivering them. Used in
// development and for users who opted out of email.
type ConsoleNotifier struct {
	logger *slog.Logger
}

// NewConsoleNotifier creates the logging adapter.
func NewConsoleNotifier(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger.With("module", "notifier")}
}

func (n *ConsoleNotifier) Send(ctx context.Context, notice *ports.Notice) error {
	n.logger.InfoContext(ctx, "Change detected",
		"target_id", notice.Target.ID,
		"url", notice.Target.URL,
		"severity", notice.Change.Severity,
		"summary", notice.Change.Summary,
		"key_changes", notice.Change.KeyChanges,
		"recipient", notice.Recipient,
	)

	return nil
}
