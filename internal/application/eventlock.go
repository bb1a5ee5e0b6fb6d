package application

import "sync"

// EventLocks serializes registration-count-affecting operations per event.
//
// Both the registration service and the attendance service must share one
// instance so a check-in can never interleave with a cancellation of the
// same registration. Operations on different events never contend. Lock
// entries live for the process lifetime; the map is bounded by the number of
// distinct events touched.
type EventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEventLocks constructs an empty lock table.
func NewEventLocks() *EventLocks {
	return &EventLocks{locks: make(map[string]*sync.Mutex)}
}

// Acquire locks the given event's mutex and returns the release func.
func (l *EventLocks) Acquire(eventID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[eventID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
