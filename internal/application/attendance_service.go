package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/example/event-attendance/internal/broadcast"
)

const summaryCacheKey = "attendance-list"

// AttendanceService records check-in and check-out transitions for admitted
// registrants and computes live occupancy aggregates.
//
// Check-in shares the per-event locks with the registration service, so a
// check-in racing a cancellation of the same registration resolves cleanly:
// either the check-in lands first (and the cancellation then clears it) or
// the cancellation lands first (and the check-in is rejected). A checked-in
// CANCELLED row cannot exist.
type AttendanceService struct {
	events    EventRegistry
	ledger    RegistrationLedger
	lifecycle *LifecycleService
	publisher UpdatePublisher
	locks     *EventLocks
	cache     *SummaryCache
	now       func() time.Time
	logger    *slog.Logger
}

// NewAttendanceService constructs an attendance service with the provided dependencies.
func NewAttendanceService(events EventRegistry, ledger RegistrationLedger, lifecycle *LifecycleService, publisher UpdatePublisher, locks *EventLocks, cache *SummaryCache, now func() time.Time) *AttendanceService {
	return NewAttendanceServiceWithLogger(events, ledger, lifecycle, publisher, locks, cache, now, nil)
}

// NewAttendanceServiceWithLogger constructs an attendance service with a specified logger.
func NewAttendanceServiceWithLogger(events EventRegistry, ledger RegistrationLedger, lifecycle *LifecycleService, publisher UpdatePublisher, locks *EventLocks, cache *SummaryCache, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if locks == nil {
		locks = NewEventLocks()
	}
	if now == nil {
		now = time.Now
	}
	return &AttendanceService{
		events:    events,
		ledger:    ledger,
		lifecycle: lifecycle,
		publisher: publisher,
		locks:     locks,
		cache:     cache,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *AttendanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AttendanceService", operation, attrs...)
}

// CheckIn marks a confirmed registration as present. It is idempotent: a
// repeated call succeeds without touching the original check-in timestamp.
func (s *AttendanceService) CheckIn(ctx context.Context, eventID, userID string) (CheckInResult, error) {
	return s.setCheckedIn(ctx, "CheckIn", eventID, userID, true)
}

// UndoCheckIn clears the check-in timestamp of a confirmed registration.
// Clearing an absent timestamp is a no-op, not an error.
func (s *AttendanceService) UndoCheckIn(ctx context.Context, eventID, userID string) (CheckInResult, error) {
	return s.setCheckedIn(ctx, "UndoCheckIn", eventID, userID, false)
}

func (s *AttendanceService) setCheckedIn(ctx context.Context, operation, eventID, userID string, present bool) (result CheckInResult, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.ledger == nil {
		err = fmt.Errorf("attendance service not configured")
		return
	}

	logger := s.loggerWith(ctx, operation,
		"user_id", userID,
		"event_id", eventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "attendance update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"checked_in", result.CheckedIn,
			"checked_in_count", result.CheckedInCount,
		).InfoContext(ctx, "attendance updated")
	}()

	if vErr := validateIdentifiers(userID, eventID); vErr.HasErrors() {
		err = vErr
		return
	}

	release := s.locks.Acquire(eventID)
	defer release()

	registration, findErr := s.ledger.FindByUserAndEvent(ctx, userID, eventID)
	if findErr != nil {
		if isNotFound(findErr) {
			err = ErrRegistrationNotFound
			return
		}
		err = findErr
		return
	}
	if registration.Status != RegistrationStatusConfirmed {
		err = ErrCheckInNotAllowed
		return
	}

	changed := false
	if present && registration.CheckedInAt == nil {
		now := s.now()
		registration.CheckedInAt = &now
		changed = true
	}
	if !present && registration.CheckedInAt != nil {
		registration.CheckedInAt = nil
		changed = true
	}

	if changed {
		if _, err = s.ledger.Save(ctx, registration); err != nil {
			return
		}
		s.cache.Invalidate()
	}

	var registered, checkedIn int
	registered, checkedIn, err = eventCounts(ctx, s.ledger, eventID)
	if err != nil {
		return
	}

	result = CheckInResult{
		CheckedIn:        present,
		RegisteredCount:  registered,
		CheckedInCount:   checkedIn,
		OccupancyPercent: occupancyPercent(checkedIn, registered),
	}

	if s.publisher != nil {
		update := result
		s.publishResult(eventID, update)
	}
	return
}

func (s *AttendanceService) publishResult(eventID string, result CheckInResult) {
	checkedIn := result.CheckedIn
	s.publisher.Publish(broadcast.Update{
		EventID:          eventID,
		RegisteredCount:  result.RegisteredCount,
		CheckedInCount:   result.CheckedInCount,
		OccupancyPercent: result.OccupancyPercent,
		CheckedIn:        &checkedIn,
	})
}

// GetAttendanceSummary returns the derived aggregate for one event. The
// lifecycle clock runs first so a stale OPEN event is not misreported.
func (s *AttendanceService) GetAttendanceSummary(ctx context.Context, eventID string) (summary AttendanceSummary, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.ledger == nil || s.events == nil {
		err = fmt.Errorf("attendance service not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetAttendanceSummary", "event_id", eventID)

	s.refreshLifecycle(ctx, logger)

	var event Event
	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventError(err)
		logger.ErrorContext(ctx, "failed to load event for summary", "error", err, "error_kind", ErrorKind(err))
		return
	}

	var registered, checkedIn int
	registered, checkedIn, err = eventCounts(ctx, s.ledger, eventID)
	if err != nil {
		return
	}

	summary = AttendanceSummary{
		EventID:          event.ID,
		Title:            event.Title,
		Start:            event.Start,
		RegisteredCount:  registered,
		CheckedInCount:   checkedIn,
		OccupancyPercent: occupancyPercent(checkedIn, registered),
	}
	return
}

// ListAttendanceEvents returns the aggregate for every non-draft event,
// ordered by start time ascending.
func (s *AttendanceService) ListAttendanceEvents(ctx context.Context) (summaries []AttendanceSummary, err error) {
	if s == nil {
		err = fmt.Errorf("AttendanceService is nil")
		return
	}
	if s.ledger == nil || s.events == nil {
		err = fmt.Errorf("attendance service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListAttendanceEvents")

	s.refreshLifecycle(ctx, logger)

	if cached, ok := s.cache.Get(summaryCacheKey); ok {
		summaries = cached
		return
	}

	var events []Event
	events, err = s.events.ListEvents(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list events", "error", err)
		return
	}

	summaries = make([]AttendanceSummary, 0, len(events))
	for _, event := range events {
		if event.Status == EventStatusDraft {
			continue
		}
		registered, checkedIn, countErr := eventCounts(ctx, s.ledger, event.ID)
		if countErr != nil {
			err = countErr
			summaries = nil
			return
		}
		summaries = append(summaries, AttendanceSummary{
			EventID:          event.ID,
			Title:            event.Title,
			Start:            event.Start,
			RegisteredCount:  registered,
			CheckedInCount:   checkedIn,
			OccupancyPercent: occupancyPercent(checkedIn, registered),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Start.Equal(summaries[j].Start) {
			return summaries[i].EventID < summaries[j].EventID
		}
		return summaries[i].Start.Before(summaries[j].Start)
	})

	s.cache.Store(summaryCacheKey, summaries)
	return
}

// refreshLifecycle advances the lifecycle clock before a read. A failed
// sweep only means slightly stale statuses, so it is logged and tolerated.
func (s *AttendanceService) refreshLifecycle(ctx context.Context, logger *slog.Logger) {
	if s.lifecycle == nil {
		return
	}
	if _, err := s.lifecycle.RefreshCompletedEvents(ctx, s.now()); err != nil {
		logger.WarnContext(ctx, "lifecycle refresh failed", "error", err)
	}
}
