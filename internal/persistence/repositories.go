// Package persistence defines the storage contracts and row models shared by
// the storage implementations and the bootstrap wiring.
package persistence

import (
	"context"
	"time"
)

// EventRepository stores event rows. The core never deletes events; the only
// mutation it issues after creation is a lifecycle status change.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	UpdateEventStatus(ctx context.Context, id, status string, updatedAt time.Time) error
}

// RegistrationRepository stores registration rows and answers the count
// queries the attendance aggregates are derived from.
type RegistrationRepository interface {
	// SaveRegistration upserts by registration ID and returns the stored row
	// with its storage-assigned sequence.
	SaveRegistration(ctx context.Context, registration Registration) (Registration, error)
	GetRegistrationByUserAndEvent(ctx context.Context, userID, eventID string) (Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]Registration, error)
	// ListWaitlisted returns the currently waitlisted rows for an event in
	// arrival order: requested-at ascending, stored rank as tiebreak.
	ListWaitlisted(ctx context.Context, eventID string) ([]Registration, error)
	CountByEventAndStatus(ctx context.Context, eventID, status string) (int, error)
	CountCheckedIn(ctx context.Context, eventID string) (int, error)
}
