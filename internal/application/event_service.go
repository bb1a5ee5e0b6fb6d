package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EventService manages the event catalog and administrator driven status
// transitions. COMPLETED is excluded here; only the lifecycle clock may
// write it.
type EventService struct {
	events      EventRegistry
	cache       *SummaryCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService constructs an event service with the provided dependencies.
func NewEventService(events EventRegistry, cache *SummaryCache, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, cache, idGenerator, now, nil)
}

// NewEventServiceWithLogger constructs an event service with a specified logger.
func NewEventServiceWithLogger(events EventRegistry, cache *SummaryCache, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		cache:       cache,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates the input and stores a new event in DRAFT status.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (event Event, err error) {
	if s == nil || s.events == nil || s.idGenerator == nil {
		err = fmt.Errorf("event service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "title", input.Title)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	if vErr := validateEventInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	event = Event{
		ID:          s.idGenerator(),
		Title:       strings.TrimSpace(input.Title),
		Start:       input.Start,
		End:         input.End,
		MaxCapacity: input.MaxCapacity,
		Status:      EventStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	event, err = s.events.CreateEvent(ctx, event)
	return
}

// GetEvent returns one event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event service not configured")
	}
	if strings.TrimSpace(id) == "" {
		vErr := &ValidationError{}
		vErr.add("event_id", "event id is required")
		return Event{}, vErr
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventError(err)
	}
	return event, nil
}

// ListEvents returns all events in catalog order.
func (s *EventService) ListEvents(ctx context.Context) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event service not configured")
	}
	return s.events.ListEvents(ctx)
}

// SetEventStatus applies an administrator status transition. Transitions
// out of a terminal state (CANCELLED, COMPLETED) are rejected, as is any
// attempt to set COMPLETED directly.
func (s *EventService) SetEventStatus(ctx context.Context, id string, status EventStatus) (err error) {
	if s == nil || s.events == nil {
		return fmt.Errorf("event service not configured")
	}

	logger := s.loggerWith(ctx, "SetEventStatus",
		"event_id", id,
		"status", string(status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event status update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event status updated")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(id) == "" {
		vErr.add("event_id", "event id is required")
	}
	switch status {
	case EventStatusDraft, EventStatusOpen, EventStatusClosed, EventStatusCancelled:
	case EventStatusCompleted:
		vErr.add("status", "COMPLETED is set by the system when the event ends")
	default:
		vErr.add("status", "status must be one of DRAFT, OPEN, CLOSED, CANCELLED")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var event Event
	event, err = s.events.GetEvent(ctx, id)
	if err != nil {
		err = mapEventError(err)
		return
	}
	if event.Status == EventStatusCancelled || event.Status == EventStatusCompleted {
		err = fmt.Errorf("%w: event %s is %s", ErrEventStateConflict, id, event.Status)
		return
	}
	if event.Status == status {
		return nil
	}

	err = s.events.UpdateEventStatus(ctx, id, status, s.now())
	if err == nil {
		s.cache.Invalidate()
	}
	return
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start time is required")
	}
	if input.End != nil && !input.Start.IsZero() && !input.End.After(input.Start) {
		vErr.add("end", "end time must be after start time")
	}
	if input.MaxCapacity != nil && *input.MaxCapacity <= 0 {
		vErr.add("max_capacity", "max capacity must be a positive integer")
	}
	return vErr
}
