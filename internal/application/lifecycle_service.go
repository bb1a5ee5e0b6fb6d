package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LifecycleService transitions events to COMPLETED once their scheduled end
// has passed. Completion is derived purely from the clock; it is never set
// directly by callers.
type LifecycleService struct {
	events EventRegistry
	logger *slog.Logger
}

// NewLifecycleService constructs a lifecycle service.
func NewLifecycleService(events EventRegistry) *LifecycleService {
	return NewLifecycleServiceWithLogger(events, nil)
}

// NewLifecycleServiceWithLogger constructs a lifecycle service with a specified logger.
func NewLifecycleServiceWithLogger(events EventRegistry, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{
		events: events,
		logger: defaultLogger(logger),
	}
}

// RefreshCompletedEvents marks every event whose end time (or start time,
// when no end is set) is at or before asOf as COMPLETED, and returns the
// number of events transitioned. CANCELLED and COMPLETED events are left
// untouched, so the sweep is idempotent. An update failure on one event is
// logged and does not stop the sweep.
func (s *LifecycleService) RefreshCompletedEvents(ctx context.Context, asOf time.Time) (completed int, err error) {
	if s == nil || s.events == nil {
		return 0, fmt.Errorf("lifecycle service not configured")
	}

	logger := serviceLogger(ctx, s.logger, "LifecycleService", "RefreshCompletedEvents")

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list events for lifecycle sweep", "error", err)
		return 0, err
	}

	for _, event := range events {
		if event.Status == EventStatusCancelled || event.Status == EventStatusCompleted {
			continue
		}
		cutoff := event.Start
		if event.End != nil {
			cutoff = *event.End
		}
		if cutoff.After(asOf) {
			continue
		}
		if updateErr := s.events.UpdateEventStatus(ctx, event.ID, EventStatusCompleted, asOf); updateErr != nil {
			logger.ErrorContext(ctx, "failed to complete event",
				"event_id", event.ID,
				"error", updateErr,
			)
			continue
		}
		completed++
	}

	if completed > 0 {
		logger.InfoContext(ctx, "events completed by lifecycle sweep", "completed", completed)
	}
	return completed, nil
}
