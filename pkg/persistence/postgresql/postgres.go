// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/vigilhq/vigil/pkg/persistence"
	"github.com/vigilhq/vigil/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	targets   *TargetRepository
	snapshots *SnapshotRepository
	changes   *ChangeRepository
	users     *UserRepository
}

// NewPersistence connects, runs migrations and returns the store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	p := &Persistence{db: database, logger: logger}
	p.targets = &TargetRepository{db: database}
	p.snapshots = &SnapshotRepository{db: database}
	p.changes = &ChangeRepository{db: database}
	p.users = &UserRepository{db: database}

	return p, nil
}

func (p *Persistence) Targets() persistence.TargetRepository { return p.targets }

func (p *Persistence) Snapshots() persistence.SnapshotRepository { return p.snapshots }

func (p *Persistence) Changes() persistence.ChangeRepository { return p.changes }

func (p *Persistence) Users() persistence.UserRepository { return p.users }

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
