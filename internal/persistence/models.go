package persistence

import "time"

// Event represents a scheduled event row as stored.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         *time.Time
	MaxCapacity *int
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration represents one (user, event) enrollment row as stored.
//
// Sequence is assigned by the storage layer on first insert and provides the
// stable arrival-order tiebreak for waitlist ordering. Cancelled rows are
// kept; reactivation reuses the row.
type Registration struct {
	Sequence         int64
	ID               string
	EventID          string
	UserID           string
	Status           string
	RequestedAt      time.Time
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	CheckedInAt      *time.Time
	WaitlistPosition *int
}
