package cmd

import (
	"context"
	"log/slog"

	"github.com/vigilhq/vigil/pkg/classifier"
	"github.com/vigilhq/vigil/pkg/notifier"
	"github.com/vigilhq/vigil/pkg/ports"
)

// NewClassifier prefers the Gemini adapter and falls back to the rule
// classifier when no API key is configured.
func NewClassifier(ctx context.Context, geminiAPIKey, geminiModel string, logger *slog.Logger) (ports.Classifier, error) {
	if geminiAPIKey == "" {
		logger.Warn("No Gemini API key configured, using rule-based classifier")

		return classifier.NewRuleClassifier(logger), nil
	}

	return classifier.NewGeminiClassifier(ctx, geminiAPIKey, geminiModel, logger)
}

// NotifierConfig holds notifier wiring options.
type NotifierConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// NewNotifier builds the channel mux: email goes over SMTP when a relay
// is configured, everything else lands on the console adapter.
func NewNotifier(config NotifierConfig, logger *slog.Logger) ports.Notifier {
	console := notifier.NewConsoleNotifier(logger)
	mux := notifier.NewMux(console)

	if config.SMTPHost != "" {
		mux.Register("email", notifier.NewSMTPNotifier(notifier.SMTPConfig{
			Host:     config.SMTPHost,
			Port:     config.SMTPPort,
			Username: config.SMTPUsername,
			Password: config.SMTPPassword,
			From:     config.SMTPFrom,
		}, logger))
	}

	return mux
}
