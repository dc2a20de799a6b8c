// Package cmd provides the shared wiring used by the vigil binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/persistence/file"
	"github.com/vigilhq/vigil/pkg/persistence/postgresql"
)

// NewPersistence selects the store from the database URL scheme:
// postgres:// connects to PostgreSQL, anything else is treated as a
// filesystem root for the JSON-file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case databaseURL == "":
		return nil, fmt.Errorf("database URL is required")
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}
