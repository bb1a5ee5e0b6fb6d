package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/event-attendance/internal/persistence"
)

// CreateEvent inserts a new event row.
func (s *Store) CreateEvent(ctx context.Context, event persistence.Event) error {
	var end sql.NullString
	if event.End != nil {
		end.String = event.End.UTC().Format(timeLayout)
		end.Valid = true
	}
	var capacity sql.NullInt64
	if event.MaxCapacity != nil {
		capacity.Int64 = int64(*event.MaxCapacity)
		capacity.Valid = true
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, start_time, end_time, max_capacity, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Title,
		event.Start.UTC().Format(timeLayout),
		end,
		capacity,
		event.Status,
		event.CreatedAt.UTC().Format(timeLayout),
		event.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Store) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, start_time, end_time, max_capacity, status, created_at, updated_at
		 FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err != nil {
		return persistence.Event{}, mapError(err)
	}
	return event, nil
}

// ListEvents returns all events ordered by start time ascending.
func (s *Store) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, start_time, end_time, max_capacity, status, created_at, updated_at
		 FROM events ORDER BY start_time, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// UpdateEventStatus sets the lifecycle status of an event.
func (s *Store) UpdateEventStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		status, updatedAt.UTC().Format(timeLayout), id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event     persistence.Event
		start     string
		end       sql.NullString
		capacity  sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(&event.ID, &event.Title, &start, &end, &capacity, &event.Status, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Event{}, err
	}

	if event.Start, err = parseTime(start); err != nil {
		return persistence.Event{}, err
	}
	if end.Valid {
		parsed, err := parseTime(end.String)
		if err != nil {
			return persistence.Event{}, err
		}
		event.End = &parsed
	}
	if capacity.Valid {
		value := int(capacity.Int64)
		event.MaxCapacity = &value
	}
	if event.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

// timeLayout is RFC 3339 with a fixed-width fractional second. RFC3339Nano
// trims trailing zeros, so its text does not sort chronologically; the padded
// form keeps ORDER BY on timestamp columns in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return parsed, nil
}
