package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migrationStep is one versioned schema change. Steps run in declaration
// order inside their own transaction and are recorded in schema_migrations,
// so Migrate is safe to call on every startup.
type migrationStep struct {
	version    string
	statements []string
}

var migrations = []migrationStep{
	{
		version: "0001_create_events",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id           TEXT PRIMARY KEY,
				title        TEXT NOT NULL,
				start_time   TEXT NOT NULL,
				end_time     TEXT,
				max_capacity INTEGER,
				status       TEXT NOT NULL,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
		},
	},
	{
		version: "0002_create_registrations",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS registrations (
				seq               INTEGER PRIMARY KEY AUTOINCREMENT,
				id                TEXT NOT NULL UNIQUE,
				event_id          TEXT NOT NULL REFERENCES events(id),
				user_id           TEXT NOT NULL,
				status            TEXT NOT NULL,
				requested_at      TEXT NOT NULL,
				confirmed_at      TEXT,
				cancelled_at      TEXT,
				checked_in_at     TEXT,
				waitlist_position INTEGER
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_event_user
				ON registrations(event_id, user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_registrations_event_status
				ON registrations(event_id, status)`,
		},
	},
}

// Migrate applies all pending schema migrations in order.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("initialize schema_migrations: %w", err)
	}

	for _, step := range migrations {
		applied, err := s.migrationApplied(ctx, step.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = s.withTransaction(ctx, func(tx *sql.Tx) error {
			for _, statement := range step.statements {
				if _, err := tx.ExecContext(ctx, statement); err != nil {
					return fmt.Errorf("migration %s: %w", step.version, err)
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				step.version, time.Now().UTC().Format(time.RFC3339))
			if err != nil {
				return fmt.Errorf("record migration %s: %w", step.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", version, err)
	}
	return count > 0, nil
}
