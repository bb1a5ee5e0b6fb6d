package application

import (
	"context"
	"testing"
	"time"
)

func TestLifecycleService_RefreshCompletedEvents(t *testing.T) {
	asOf := time.Date(2026, time.May, 20, 10, 0, 0, 0, time.UTC)

	eventWithEnd := func(id string, status EventStatus, start time.Time, end *time.Time) Event {
		return Event{ID: id, Title: id, Start: start, End: end, Status: status}
	}

	t.Run("completes events whose end has passed", func(t *testing.T) {
		start := asOf.Add(-3 * time.Hour)
		end := asOf.Add(-time.Hour)
		registry := newRegistryStub(eventWithEnd("evt-1", EventStatusOpen, start, &end))
		svc := NewLifecycleService(registry)

		completed, err := svc.RefreshCompletedEvents(context.Background(), asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if completed != 1 {
			t.Fatalf("expected one completion, got %d", completed)
		}

		stored, _ := registry.GetEvent(context.Background(), "evt-1")
		if stored.Status != EventStatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", stored.Status)
		}
	})

	t.Run("falls back to the start time when no end is set", func(t *testing.T) {
		registry := newRegistryStub(eventWithEnd("evt-1", EventStatusOpen, asOf.Add(-time.Minute), nil))
		svc := NewLifecycleService(registry)

		completed, err := svc.RefreshCompletedEvents(context.Background(), asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if completed != 1 {
			t.Fatalf("expected one completion, got %d", completed)
		}
	})

	t.Run("leaves future events untouched", func(t *testing.T) {
		registry := newRegistryStub(eventWithEnd("evt-1", EventStatusOpen, asOf.Add(time.Hour), nil))
		svc := NewLifecycleService(registry)

		completed, err := svc.RefreshCompletedEvents(context.Background(), asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if completed != 0 {
			t.Fatalf("expected no completions, got %d", completed)
		}

		stored, _ := registry.GetEvent(context.Background(), "evt-1")
		if stored.Status != EventStatusOpen {
			t.Fatalf("expected OPEN, got %s", stored.Status)
		}
	})

	t.Run("skips cancelled events and repeats idempotently", func(t *testing.T) {
		past := asOf.Add(-time.Hour)
		registry := newRegistryStub(
			eventWithEnd("evt-cancelled", EventStatusCancelled, past, nil),
			eventWithEnd("evt-open", EventStatusOpen, past, nil),
		)
		svc := NewLifecycleService(registry)
		ctx := context.Background()

		first, err := svc.RefreshCompletedEvents(ctx, asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != 1 {
			t.Fatalf("expected one completion, got %d", first)
		}

		second, err := svc.RefreshCompletedEvents(ctx, asOf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second != 0 {
			t.Fatalf("expected repeat sweep to complete nothing, got %d", second)
		}

		cancelled, _ := registry.GetEvent(ctx, "evt-cancelled")
		if cancelled.Status != EventStatusCancelled {
			t.Fatalf("expected CANCELLED to stay terminal, got %s", cancelled.Status)
		}
	})

	t.Run("continues past individual update failures", func(t *testing.T) {
		past := asOf.Add(-time.Hour)
		registry := newRegistryStub(eventWithEnd("evt-1", EventStatusOpen, past, nil))
		registry.updateErr = context.DeadlineExceeded
		svc := NewLifecycleService(registry)

		completed, err := svc.RefreshCompletedEvents(context.Background(), asOf)
		if err != nil {
			t.Fatalf("expected sweep to tolerate update failures, got %v", err)
		}
		if completed != 0 {
			t.Fatalf("expected failed update not to count, got %d", completed)
		}
	})
}
