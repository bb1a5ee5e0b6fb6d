package application

import (
	"context"
	"time"

	"github.com/example/event-attendance/internal/broadcast"
)

// EventRegistry captures the event persistence interactions needed by the services.
type EventRegistry interface {
	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context) ([]Event, error)
	UpdateEventStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error
}

// RegistrationLedger captures the registration persistence interactions
// needed by the services. It is the single mutable shared resource; all
// writes to it go through the per-event locks held by the calling service.
type RegistrationLedger interface {
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]Registration, error)
	// ListWaitlisted returns waitlisted registrations in arrival order
	// (requested-at ascending, stored rank as tiebreak).
	ListWaitlisted(ctx context.Context, eventID string) ([]Registration, error)
	CountByEventAndStatus(ctx context.Context, eventID string, status RegistrationStatus) (int, error)
	CountCheckedIn(ctx context.Context, eventID string) (int, error)
	Save(ctx context.Context, registration Registration) (Registration, error)
}

// UpdatePublisher receives the fresh aggregate after every mutation.
// Implementations must not block; failures are the publisher's to log.
type UpdatePublisher interface {
	Publish(update broadcast.Update)
}
