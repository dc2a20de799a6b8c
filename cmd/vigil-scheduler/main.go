package main

import (
	"context"
	"fmt"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/vigilhq/vigil/pkg/log"
	"github.com/vigilhq/vigil/pkg/models"
)

func main() {
	cmd := &cli.Command{
		Name:                  "vigil-scheduler",
		Usage:                 "Start the vigil monitoring scheduler",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL (postgres:// or a file path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed run lock (in-memory when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "gemini-api-key",
				Usage:   "Gemini API key (rule-based classifier when empty)",
				Sources: cli.EnvVars("GEMINI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "gemini-model",
				Usage:   "Gemini model name",
				Sources: cli.EnvVars("GEMINI_MODEL"),
			},
			&cli.StringFlag{
				Name:    "smtp-host",
				Usage:   "SMTP relay host (console notifier when empty)",
				Sources: cli.EnvVars("SMTP_HOST"),
			},
			&cli.IntFlag{
				Name:    "smtp-port",
				Usage:   "SMTP relay port",
				Value:   587,
				Sources: cli.EnvVars("SMTP_PORT"),
			},
			&cli.StringFlag{
				Name:    "smtp-username",
				Sources: cli.EnvVars("SMTP_USERNAME"),
			},
			&cli.StringFlag{
				Name:    "smtp-password",
				Sources: cli.EnvVars("SMTP_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "smtp-from",
				Usage:   "From address for change notifications",
				Value:   "vigil@localhost",
				Sources: cli.EnvVars("SMTP_FROM"),
			},
			&cli.DurationFlag{
				Name:    "sweep-interval",
				Usage:   "Fixed interval between due-target sweeps",
				Value:   time.Minute,
				Sources: cli.EnvVars("SWEEP_INTERVAL"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-runs",
				Usage:   "Cap on in-flight monitoring runs",
				Value:   10,
				Sources: cli.EnvVars("MAX_CONCURRENT_RUNS"),
			},
			&cli.DurationFlag{
				Name:    "lock-lease",
				Usage:   "Run lock lease duration",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("LOCK_LEASE"),
			},
			&cli.DurationFlag{
				Name:    "drain-timeout",
				Usage:   "Shutdown wait for in-flight runs",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("DRAIN_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "notify-threshold",
				Usage:   "Minimum severity that triggers a notification (minor, major)",
				Value:   string(models.SeverityMajor),
				Sources: cli.EnvVars("NOTIFY_THRESHOLD"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			monitor, err := NewMonitor(ctx, command)
			if err != nil {
				return fmt.Errorf("failed to initialize scheduler: %w", err)
			}
			defer monitor.Close(ctx)

			return monitor.Start(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
