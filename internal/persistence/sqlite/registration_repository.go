package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/event-attendance/internal/persistence"
)

const registrationColumns = `seq, id, event_id, user_id, status, requested_at,
	confirmed_at, cancelled_at, checked_in_at, waitlist_position`

// SaveRegistration upserts a registration row keyed by its ID and returns the
// stored row including the storage-assigned sequence.
func (s *Store) SaveRegistration(ctx context.Context, registration persistence.Registration) (persistence.Registration, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registrations
			(id, event_id, user_id, status, requested_at, confirmed_at, cancelled_at, checked_in_at, waitlist_position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status            = excluded.status,
			requested_at      = excluded.requested_at,
			confirmed_at      = excluded.confirmed_at,
			cancelled_at      = excluded.cancelled_at,
			checked_in_at     = excluded.checked_in_at,
			waitlist_position = excluded.waitlist_position`,
		registration.ID,
		registration.EventID,
		registration.UserID,
		registration.Status,
		registration.RequestedAt.UTC().Format(timeLayout),
		nullTime(registration.ConfirmedAt),
		nullTime(registration.CancelledAt),
		nullTime(registration.CheckedInAt),
		nullInt(registration.WaitlistPosition),
	)
	if err != nil {
		return persistence.Registration{}, mapError(err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, registration.ID)
	stored, err := scanRegistration(row)
	if err != nil {
		return persistence.Registration{}, mapError(err)
	}
	return stored, nil
}

// GetRegistrationByUserAndEvent returns the single row for a (user, event)
// pair. Reactivation reuses cancelled rows, so at most one row exists.
func (s *Store) GetRegistrationByUserAndEvent(ctx context.Context, userID, eventID string) (persistence.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE user_id = ? AND event_id = ?`,
		userID, eventID)
	registration, err := scanRegistration(row)
	if err != nil {
		return persistence.Registration{}, mapError(err)
	}
	return registration, nil
}

// ListRegistrationsByEvent returns all rows for an event in arrival order.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]persistence.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? ORDER BY requested_at, seq`, eventID)
}

// ListWaitlisted returns the waitlisted rows for an event in arrival order.
// Ties on requested_at are broken by the stored rank, not by seq: a
// reactivated registration reuses its original row and keeps its old seq,
// while its rank reflects the current request.
func (s *Store) ListWaitlisted(ctx context.Context, eventID string) ([]persistence.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? AND status = 'WAITLISTED'
		 ORDER BY requested_at, waitlist_position, seq`, eventID)
}

// CountByEventAndStatus counts rows for an event holding the given status.
func (s *Store) CountByEventAndStatus(ctx context.Context, eventID, status string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status = ?`,
		eventID, status).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// CountCheckedIn counts confirmed rows with a check-in timestamp.
func (s *Store) CountCheckedIn(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = ? AND status = 'CONFIRMED' AND checked_in_at IS NOT NULL`,
		eventID).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (s *Store) queryRegistrations(ctx context.Context, query string, args ...any) ([]persistence.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var registrations []persistence.Registration
	for rows.Next() {
		registration, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, registration)
	}
	return registrations, rows.Err()
}

func scanRegistration(row rowScanner) (persistence.Registration, error) {
	var (
		registration persistence.Registration
		requestedAt  string
		confirmedAt  sql.NullString
		cancelledAt  sql.NullString
		checkedInAt  sql.NullString
		position     sql.NullInt64
	)
	err := row.Scan(
		&registration.Sequence,
		&registration.ID,
		&registration.EventID,
		&registration.UserID,
		&registration.Status,
		&requestedAt,
		&confirmedAt,
		&cancelledAt,
		&checkedInAt,
		&position,
	)
	if err != nil {
		return persistence.Registration{}, err
	}

	if registration.RequestedAt, err = parseTime(requestedAt); err != nil {
		return persistence.Registration{}, err
	}
	if registration.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
		return persistence.Registration{}, err
	}
	if registration.CancelledAt, err = parseNullTime(cancelledAt); err != nil {
		return persistence.Registration{}, err
	}
	if registration.CheckedInAt, err = parseNullTime(checkedInAt); err != nil {
		return persistence.Registration{}, err
	}
	if position.Valid {
		value := int(position.Int64)
		registration.WaitlistPosition = &value
	}
	return registration, nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(timeLayout), Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
