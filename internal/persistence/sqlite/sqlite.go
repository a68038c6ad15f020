// Package sqlite persists meetings, audit entries, directory users and login
// sessions in a SQLite database through sqlx.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the repositories sharing one connection pool.
type Storage struct {
	Meetings *MeetingRepository
	Audit    *AuditRepository
	Users    *UserRepository
	Sessions *SessionRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database described by dsn. Call Migrate before use.
func Open(dsn string, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(migration.DefaultSQLiteConfig(dsn))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		Meetings: NewMeetingRepository(pool),
		Audit:    NewAuditRepository(pool),
		Users:    NewUserRepository(pool),
		Sessions: NewSessionRepository(pool),
		pool:     pool,
		logger:   logger,
	}, nil
}

// Migrate applies every pending embedded schema migration.
func (s *Storage) Migrate(ctx context.Context) error {
	migrations, err := migration.Load(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	manager := migration.NewManager(migrations, migration.NewSQLiteExecutor(s.pool.DB()), s.logger)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
