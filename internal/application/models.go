package application

import "time"

// EventStatus enumerates the lifecycle states of an event.
type EventStatus string

const (
	// EventStatusDraft marks an event that is not yet visible to attendees.
	EventStatusDraft EventStatus = "DRAFT"
	// EventStatusOpen marks an event accepting registrations.
	EventStatusOpen EventStatus = "OPEN"
	// EventStatusClosed marks an event no longer accepting registrations.
	EventStatusClosed EventStatus = "CLOSED"
	// EventStatusCancelled marks an event called off by an administrator. Terminal.
	EventStatusCancelled EventStatus = "CANCELLED"
	// EventStatusCompleted marks an event whose end time has passed. Terminal,
	// written only by the lifecycle clock.
	EventStatusCompleted EventStatus = "COMPLETED"
)

// RegistrationStatus enumerates the states of a registration.
type RegistrationStatus string

const (
	// RegistrationStatusRequested is the transient intake state; it resolves
	// to CONFIRMED or WAITLISTED before the request returns.
	RegistrationStatusRequested RegistrationStatus = "REQUESTED"
	// RegistrationStatusConfirmed marks an admitted registration.
	RegistrationStatusConfirmed RegistrationStatus = "CONFIRMED"
	// RegistrationStatusWaitlisted marks a registration queued for a slot.
	RegistrationStatusWaitlisted RegistrationStatus = "WAITLISTED"
	// RegistrationStatusCancelled is the absorbing terminal state.
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
)

// Event represents a scheduled event with a finite (or unbounded) capacity.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         *time.Time
	MaxCapacity *int
	Status      EventStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title       string
	Start       time.Time
	End         *time.Time
	MaxCapacity *int
}

// Registration represents one user's enrollment in one event.
//
// WaitlistPosition is non-nil only while the registration is WAITLISTED and
// is kept dense: after any promotion or cancellation the remaining waitlist
// for the event is recompacted to ranks 1..N in arrival order.
type Registration struct {
	ID               string
	EventID          string
	UserID           string
	Status           RegistrationStatus
	RequestedAt      time.Time
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	CheckedInAt      *time.Time
	WaitlistPosition *int
}

// RequestRegistrationParams wraps the data required to request a registration.
type RequestRegistrationParams struct {
	UserID  string
	EventID string
}

// CancelRegistrationParams wraps the data required to cancel a registration.
type CancelRegistrationParams struct {
	UserID  string
	EventID string
}

// CheckInResult reports the attendance aggregate after a check-in or
// undo-check-in call, together with the caller's resulting state.
type CheckInResult struct {
	CheckedIn        bool
	RegisteredCount  int
	CheckedInCount   int
	OccupancyPercent float64
}

// AttendanceSummary is the derived aggregate for one event. Counts are
// recomputed from the ledger on every read; nothing here is stored.
type AttendanceSummary struct {
	EventID          string
	Title            string
	Start            time.Time
	RegisteredCount  int
	CheckedInCount   int
	OccupancyPercent float64
}

// occupancyPercent is checked-in over registered, as a percentage. Zero when
// nobody is registered.
func occupancyPercent(checkedIn, registered int) float64 {
	if registered == 0 {
		return 0
	}
	return float64(checkedIn) / float64(registered) * 100
}
