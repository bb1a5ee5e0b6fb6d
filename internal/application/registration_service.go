package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/event-attendance/internal/broadcast"
	"github.com/example/event-attendance/internal/persistence"
)

// RegistrationService admits or waitlists registration requests against an
// event's capacity and promotes waitlisted entries when a slot frees.
//
// Every count-affecting operation runs under the event's lock, so two
// concurrent requests for the last open slot can never both be admitted, and
// a cancellation is atomic with the promotion it triggers.
type RegistrationService struct {
	events      EventRegistry
	ledger      RegistrationLedger
	publisher   UpdatePublisher
	locks       *EventLocks
	cache       *SummaryCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRegistrationService constructs a registration service with the provided dependencies.
func NewRegistrationService(events EventRegistry, ledger RegistrationLedger, publisher UpdatePublisher, locks *EventLocks, cache *SummaryCache, idGenerator func() string, now func() time.Time) *RegistrationService {
	return NewRegistrationServiceWithLogger(events, ledger, publisher, locks, cache, idGenerator, now, nil)
}

// NewRegistrationServiceWithLogger constructs a registration service with a specified logger.
func NewRegistrationServiceWithLogger(events EventRegistry, ledger RegistrationLedger, publisher UpdatePublisher, locks *EventLocks, cache *SummaryCache, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RegistrationService {
	if locks == nil {
		locks = NewEventLocks()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RegistrationService{
		events:      events,
		ledger:      ledger,
		publisher:   publisher,
		locks:       locks,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

// RequestRegistration creates (or reactivates) a registration for the user,
// admitting it when capacity allows and waitlisting it otherwise.
func (s *RegistrationService) RequestRegistration(ctx context.Context, params RequestRegistrationParams) (registration Registration, err error) {
	if s == nil {
		err = fmt.Errorf("RegistrationService is nil")
		return
	}
	if s.ledger == nil || s.events == nil {
		err = fmt.Errorf("registration service not configured")
		return
	}

	logger := s.loggerWith(ctx, "RequestRegistration",
		"user_id", params.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to request registration", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"registration_id", registration.ID,
			"status", registration.Status,
		).InfoContext(ctx, "registration requested")
	}()

	if vErr := validateIdentifiers(params.UserID, params.EventID); vErr.HasErrors() {
		err = vErr
		return
	}

	release := s.locks.Acquire(params.EventID)
	defer release()

	var event Event
	event, err = s.events.GetEvent(ctx, params.EventID)
	if err != nil {
		err = mapEventError(err)
		return
	}
	if event.Status != EventStatusOpen {
		err = ErrRegistrationClosed
		return
	}

	now := s.now()
	intake := Registration{
		ID:          s.idGenerator(),
		EventID:     params.EventID,
		UserID:      params.UserID,
		Status:      RegistrationStatusRequested,
		RequestedAt: now,
	}

	existing, findErr := s.ledger.FindByUserAndEvent(ctx, params.UserID, params.EventID)
	switch {
	case findErr == nil:
		if existing.Status != RegistrationStatusCancelled {
			err = ErrDuplicateRegistration
			return
		}
		// Reactivation reuses the row: the new request joins the queue at
		// its new request time.
		intake.ID = existing.ID
	case isNotFound(findErr):
		// First registration for this pair.
	default:
		err = findErr
		return
	}

	var confirmed int
	confirmed, err = s.ledger.CountByEventAndStatus(ctx, params.EventID, RegistrationStatusConfirmed)
	if err != nil {
		return
	}

	if event.MaxCapacity == nil || confirmed < *event.MaxCapacity {
		intake.Status = RegistrationStatusConfirmed
		intake.ConfirmedAt = &now
	} else {
		var waitlisted int
		waitlisted, err = s.ledger.CountByEventAndStatus(ctx, params.EventID, RegistrationStatusWaitlisted)
		if err != nil {
			return
		}
		position := waitlisted + 1
		intake.Status = RegistrationStatusWaitlisted
		intake.WaitlistPosition = &position
	}

	registration, err = s.ledger.Save(ctx, intake)
	if err != nil {
		return
	}

	s.cache.Invalidate()
	s.publishAggregate(ctx, logger, params.EventID, nil)
	return
}

// CancelRegistration cancels the user's registration. Cancelling a CONFIRMED
// registration promotes the earliest waitlisted entry in the same critical
// section, so a freed slot is never observable as unfilled while a waitlist
// entry exists.
func (s *RegistrationService) CancelRegistration(ctx context.Context, params CancelRegistrationParams) (registration Registration, err error) {
	if s == nil {
		err = fmt.Errorf("RegistrationService is nil")
		return
	}
	if s.ledger == nil {
		err = fmt.Errorf("registration service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelRegistration",
		"user_id", params.UserID,
		"event_id", params.EventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel registration", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("registration_id", registration.ID).InfoContext(ctx, "registration cancelled")
	}()

	if vErr := validateIdentifiers(params.UserID, params.EventID); vErr.HasErrors() {
		err = vErr
		return
	}

	release := s.locks.Acquire(params.EventID)
	defer release()

	existing, findErr := s.ledger.FindByUserAndEvent(ctx, params.UserID, params.EventID)
	if findErr != nil {
		if isNotFound(findErr) {
			err = ErrRegistrationNotFound
			return
		}
		err = findErr
		return
	}
	if existing.Status == RegistrationStatusCancelled {
		err = ErrRegistrationNotFound
		return
	}

	wasConfirmed := existing.Status == RegistrationStatusConfirmed

	now := s.now()
	existing.Status = RegistrationStatusCancelled
	existing.CancelledAt = &now
	existing.CheckedInAt = nil
	existing.WaitlistPosition = nil

	registration, err = s.ledger.Save(ctx, existing)
	if err != nil {
		return
	}

	if wasConfirmed {
		if err = s.promoteNextLocked(ctx, logger, params.EventID, now); err != nil {
			return
		}
	}
	if err = s.recompactWaitlistLocked(ctx, params.EventID); err != nil {
		return
	}

	s.cache.Invalidate()
	s.publishAggregate(ctx, logger, params.EventID, nil)
	return
}

// promoteNextLocked moves the earliest waitlisted registration to CONFIRMED.
// Callers must hold the event lock.
func (s *RegistrationService) promoteNextLocked(ctx context.Context, logger *slog.Logger, eventID string, now time.Time) error {
	waiting, err := s.ledger.ListWaitlisted(ctx, eventID)
	if err != nil {
		return err
	}
	if len(waiting) == 0 {
		return nil
	}

	if s.events != nil {
		event, err := s.events.GetEvent(ctx, eventID)
		if err != nil {
			return mapEventError(err)
		}
		if event.MaxCapacity != nil {
			confirmed, err := s.ledger.CountByEventAndStatus(ctx, eventID, RegistrationStatusConfirmed)
			if err != nil {
				return err
			}
			if confirmed >= *event.MaxCapacity {
				// The cancellation just freed a slot; a full event here means
				// the ledger and the capacity check disagree.
				return fmt.Errorf("%w: event %s confirmed count %d at capacity %d during promotion",
					ErrInvariantViolation, eventID, confirmed, *event.MaxCapacity)
			}
		}
	}

	head := waiting[0]
	head.Status = RegistrationStatusConfirmed
	head.ConfirmedAt = &now
	head.WaitlistPosition = nil

	promoted, err := s.ledger.Save(ctx, head)
	if err != nil {
		return err
	}

	logger.With(
		"promoted_registration_id", promoted.ID,
		"promoted_user_id", promoted.UserID,
	).InfoContext(ctx, "waitlisted registration promoted")
	return nil
}

// recompactWaitlistLocked rewrites waitlist positions to the dense sequence
// 1..N in arrival order. Callers must hold the event lock.
func (s *RegistrationService) recompactWaitlistLocked(ctx context.Context, eventID string) error {
	waiting, err := s.ledger.ListWaitlisted(ctx, eventID)
	if err != nil {
		return err
	}
	for i, entry := range waiting {
		rank := i + 1
		if entry.WaitlistPosition != nil && *entry.WaitlistPosition == rank {
			continue
		}
		entry.WaitlistPosition = &rank
		if _, err := s.ledger.Save(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// publishAggregate recomputes the event's counts and hands them to the
// publisher. Failures are logged and swallowed: broadcast is fire-and-forget
// and never rolls back the mutation that triggered it.
func (s *RegistrationService) publishAggregate(ctx context.Context, logger *slog.Logger, eventID string, checkedIn *bool) {
	publishAggregate(ctx, logger, s.publisher, s.ledger, eventID, checkedIn)
}

func publishAggregate(ctx context.Context, logger *slog.Logger, publisher UpdatePublisher, ledger RegistrationLedger, eventID string, checkedIn *bool) {
	if publisher == nil {
		return
	}
	registered, checkedInCount, err := eventCounts(ctx, ledger, eventID)
	if err != nil {
		logger.WarnContext(ctx, "skipping attendance broadcast", "error", err)
		return
	}
	publisher.Publish(broadcast.Update{
		EventID:          eventID,
		RegisteredCount:  registered,
		CheckedInCount:   checkedInCount,
		OccupancyPercent: occupancyPercent(checkedInCount, registered),
		CheckedIn:        checkedIn,
	})
}

func eventCounts(ctx context.Context, ledger RegistrationLedger, eventID string) (registered, checkedIn int, err error) {
	registered, err = ledger.CountByEventAndStatus(ctx, eventID, RegistrationStatusConfirmed)
	if err != nil {
		return 0, 0, err
	}
	checkedIn, err = ledger.CountCheckedIn(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	return registered, checkedIn, nil
}

func validateIdentifiers(userID, eventID string) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(userID) == "" {
		vErr.add("user_id", "user id is required")
	}
	if strings.TrimSpace(eventID) == "" {
		vErr.add("event_id", "event id is required")
	}
	return vErr
}

func mapEventError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRegistrationNotFound) ||
		errors.Is(err, persistence.ErrNotFound)
}
