package application

import "errors"

var (
	// ErrNotFound is returned when the requested event does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrRegistrationNotFound is returned when no active registration exists
	// for the (user, event) pair.
	ErrRegistrationNotFound = errors.New("application: registration not found")
	// ErrDuplicateRegistration is returned when the user already holds a
	// non-cancelled registration for the event.
	ErrDuplicateRegistration = errors.New("application: duplicate registration")
	// ErrRegistrationClosed is returned when the event is not open for registration.
	ErrRegistrationClosed = errors.New("application: event not open for registration")
	// ErrCheckInNotAllowed is returned when check-in is attempted against a
	// registration that is not CONFIRMED.
	ErrCheckInNotAllowed = errors.New("application: check-in not allowed")
	// ErrEventStateConflict is returned when a requested status change is not
	// allowed from the event's current state, such as reopening a cancelled
	// or completed event.
	ErrEventStateConflict = errors.New("application: event state conflict")
	// ErrInvariantViolation marks internal state inconsistencies. It signals a
	// programming error, never a caller mistake, and always aborts the
	// operation before counts can be corrupted.
	ErrInvariantViolation = errors.New("application: invariant violation")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
