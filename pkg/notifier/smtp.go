// Package notifier implements the Notifier port: SMTP email delivery
// and a console adapter for development.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/vigilhq/vigil/pkg/ports"
)

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier delivers change notices as plain-text email.
type SMTPNotifier struct {
	config SMTPConfig
	logger *slog.Logger

	// send is swappable for tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates the email adapter.
func NewSMTPNotifier(config SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		config: config,
		logger: logger.With("module", "notifier"),
		send:   smtp.SendMail,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, notice *ports.Notice) error {
	if notice.Recipient == "" {
		return ports.Permanent(fmt.Errorf("notice has no recipient"))
	}

	msg := buildMessage(n.config.From, notice)
	addr := net.JoinHostPort(n.config.Host, fmt.Sprintf("%d", n.config.Port))

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := n.send(addr, auth, n.config.From, []string{notice.Recipient}, msg); err != nil {
		// Relay trouble is worth a resend attempt on the next run.
		return ports.Transient(fmt.Errorf("smtp send failed: %w", err))
	}

	n.logger.InfoContext(ctx, "Sent change notification",
		"target_id", notice.Target.ID, "recipient", notice.Recipient,
		"severity", notice.Change.Severity)

	return nil
}

func buildMessage(from string, notice *ports.Notice) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", notice.Recipient)
	fmt.Fprintf(&b, "Subject: [vigil] %s change detected on %s\r\n",
		notice.Change.Severity, notice.Target.URL)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "A %s change was detected on %s at %s.\r\n\r\n",
		notice.Change.Severity, notice.Target.URL,
		notice.Change.DetectedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "%s\r\n", notice.Change.Summary)

	if len(notice.Change.KeyChanges) > 0 {
		b.WriteString("\r\nKey changes:\r\n")

		for _, change := range notice.Change.KeyChanges {
			fmt.Fprintf(&b, "  - %s\r\n", change)
		}
	}

	return []byte(b.String())
}
