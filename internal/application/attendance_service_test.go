package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newAttendanceFixture(events ...Event) (*AttendanceService, *RegistrationService, *ledgerStub, *publisherStub) {
	registry := newRegistryStub(events...)
	ledger := &ledgerStub{}
	publisher := &publisherStub{}
	locks := NewEventLocks()
	clock := steppingClock(time.Date(2026, time.May, 20, 10, 0, 0, 0, time.UTC), time.Second)

	registrations := NewRegistrationService(registry, ledger, publisher, locks, nil, sequentialIDs("reg"), clock)
	attendance := NewAttendanceService(registry, ledger, nil, publisher, locks, nil, clock)
	return attendance, registrations, ledger, publisher
}

func TestAttendanceService_CheckIn(t *testing.T) {
	t.Run("records a confirmed registrant as present", func(t *testing.T) {
		attendance, registrations, ledger, publisher := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: "alice", EventID: "evt-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := attendance.CheckIn(ctx, "evt-1", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !result.CheckedIn {
			t.Fatal("expected CheckedIn to be true")
		}
		if result.RegisteredCount != 1 || result.CheckedInCount != 1 {
			t.Fatalf("unexpected counts: %+v", result)
		}
		if result.OccupancyPercent != 100 {
			t.Fatalf("expected 100%% occupancy, got %f", result.OccupancyPercent)
		}

		row, _ := ledger.byUser("alice", "evt-1")
		if row.CheckedInAt == nil {
			t.Fatal("expected CheckedInAt to be persisted")
		}

		update, ok := publisher.last()
		if !ok {
			t.Fatal("expected a broadcast after check-in")
		}
		if update.CheckedIn == nil || !*update.CheckedIn {
			t.Fatalf("expected checkedIn=true in update, got %+v", update)
		}
	})

	t.Run("repeat check-in succeeds without moving the timestamp", func(t *testing.T) {
		attendance, registrations, ledger, _ := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: "alice", EventID: "evt-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := attendance.CheckIn(ctx, "evt-1", "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first, _ := ledger.byUser("alice", "evt-1")

		result, err := attendance.CheckIn(ctx, "evt-1", "alice")
		if err != nil {
			t.Fatalf("expected repeat check-in to succeed, got %v", err)
		}
		if result.CheckedInCount != 1 {
			t.Fatalf("expected checked-in count to stay 1, got %d", result.CheckedInCount)
		}

		second, _ := ledger.byUser("alice", "evt-1")
		if !second.CheckedInAt.Equal(*first.CheckedInAt) {
			t.Fatal("expected repeat check-in to keep the original timestamp")
		}
	})

	t.Run("rejects waitlisted registrants without mutating or broadcasting", func(t *testing.T) {
		attendance, registrations, ledger, publisher := newAttendanceFixture(openEvent("evt-1", intPtr(1)))
		ctx := context.Background()

		for _, user := range []string{"alice", "bob"} {
			if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: user, EventID: "evt-1"}); err != nil {
				t.Fatalf("unexpected error for %s: %v", user, err)
			}
		}
		published := publisher.count()

		_, err := attendance.CheckIn(ctx, "evt-1", "bob")
		if !errors.Is(err, ErrCheckInNotAllowed) {
			t.Fatalf("expected ErrCheckInNotAllowed, got %v", err)
		}

		row, _ := ledger.byUser("bob", "evt-1")
		if row.CheckedInAt != nil {
			t.Fatal("expected rejected check-in to leave the row untouched")
		}
		if publisher.count() != published {
			t.Fatalf("expected no broadcast for rejected check-in, got %d extra", publisher.count()-published)
		}
	})

	t.Run("reports unknown registrations", func(t *testing.T) {
		attendance, _, _, _ := newAttendanceFixture(openEvent("evt-1", intPtr(1)))

		_, err := attendance.CheckIn(context.Background(), "evt-1", "ghost")
		if !errors.Is(err, ErrRegistrationNotFound) {
			t.Fatalf("expected ErrRegistrationNotFound, got %v", err)
		}
	})
}

func TestAttendanceService_UndoCheckIn(t *testing.T) {
	t.Run("clears the check-in timestamp", func(t *testing.T) {
		attendance, registrations, ledger, publisher := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: "alice", EventID: "evt-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := attendance.CheckIn(ctx, "evt-1", "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := attendance.UndoCheckIn(ctx, "evt-1", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.CheckedIn {
			t.Fatal("expected CheckedIn to be false")
		}
		if result.CheckedInCount != 0 {
			t.Fatalf("expected checked-in count 0, got %d", result.CheckedInCount)
		}

		row, _ := ledger.byUser("alice", "evt-1")
		if row.CheckedInAt != nil {
			t.Fatal("expected CheckedInAt to be cleared")
		}

		update, ok := publisher.last()
		if !ok {
			t.Fatal("expected a broadcast after undo")
		}
		if update.CheckedIn == nil || *update.CheckedIn {
			t.Fatalf("expected checkedIn=false in update, got %+v", update)
		}
	})

	t.Run("is a no-op when not checked in", func(t *testing.T) {
		attendance, registrations, _, _ := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: "alice", EventID: "evt-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := attendance.UndoCheckIn(ctx, "evt-1", "alice")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.CheckedIn {
			t.Fatal("expected CheckedIn to remain false")
		}
	})
}

func TestAttendanceService_GetAttendanceSummary(t *testing.T) {
	t.Run("computes occupancy from the ledger", func(t *testing.T) {
		attendance, registrations, _, _ := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		for _, user := range []string{"alice", "bob"} {
			if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: user, EventID: "evt-1"}); err != nil {
				t.Fatalf("unexpected error for %s: %v", user, err)
			}
		}
		if _, err := attendance.CheckIn(ctx, "evt-1", "alice"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		summary, err := attendance.GetAttendanceSummary(ctx, "evt-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if summary.RegisteredCount != 2 || summary.CheckedInCount != 1 {
			t.Fatalf("unexpected counts: %+v", summary)
		}
		if summary.OccupancyPercent != 50 {
			t.Fatalf("expected 50%% occupancy, got %f", summary.OccupancyPercent)
		}
	})

	t.Run("keeps fractional occupancy unrounded", func(t *testing.T) {
		attendance, registrations, _, _ := newAttendanceFixture(openEvent("evt-1", intPtr(10)))
		ctx := context.Background()

		for _, user := range []string{"alice", "bob", "carol"} {
			if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: user, EventID: "evt-1"}); err != nil {
				t.Fatalf("unexpected error for %s: %v", user, err)
			}
		}
		for _, user := range []string{"alice", "bob"} {
			if _, err := attendance.CheckIn(ctx, "evt-1", user); err != nil {
				t.Fatalf("unexpected error for %s: %v", user, err)
			}
		}

		summary, err := attendance.GetAttendanceSummary(ctx, "evt-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := float64(2) / float64(3) * 100
		if summary.OccupancyPercent != want {
			t.Fatalf("expected %f occupancy, got %f", want, summary.OccupancyPercent)
		}
	})

	t.Run("reports zero occupancy with no registrations", func(t *testing.T) {
		attendance, _, _, _ := newAttendanceFixture(openEvent("evt-1", intPtr(10)))

		summary, err := attendance.GetAttendanceSummary(context.Background(), "evt-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.OccupancyPercent != 0 {
			t.Fatalf("expected zero occupancy, got %f", summary.OccupancyPercent)
		}
	})

	t.Run("reports unknown events", func(t *testing.T) {
		attendance, _, _, _ := newAttendanceFixture()

		_, err := attendance.GetAttendanceSummary(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAttendanceService_ListAttendanceEvents(t *testing.T) {
	t.Run("excludes drafts and sorts by start time", func(t *testing.T) {
		early := openEvent("evt-early", intPtr(10))
		early.Start = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)
		late := openEvent("evt-late", intPtr(10))
		late.Start = time.Date(2026, time.June, 2, 9, 0, 0, 0, time.UTC)
		draft := openEvent("evt-draft", intPtr(10))
		draft.Status = EventStatusDraft

		attendance, _, _, _ := newAttendanceFixture(late, draft, early)

		summaries, err := attendance.ListAttendanceEvents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(summaries) != 2 {
			t.Fatalf("expected two summaries, got %d", len(summaries))
		}
		if summaries[0].EventID != "evt-early" || summaries[1].EventID != "evt-late" {
			t.Fatalf("unexpected order: %s, %s", summaries[0].EventID, summaries[1].EventID)
		}
	})

	t.Run("advances lifecycle before reporting", func(t *testing.T) {
		registry := newRegistryStub()
		past := openEvent("evt-past", intPtr(10))
		past.Start = time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC)
		end := past.Start.Add(time.Hour)
		past.End = &end
		registry.events[past.ID] = past

		ledger := &ledgerStub{}
		locks := NewEventLocks()
		clock := func() time.Time { return time.Date(2026, time.May, 20, 10, 0, 0, 0, time.UTC) }
		lifecycle := NewLifecycleService(registry)
		attendance := NewAttendanceService(registry, ledger, lifecycle, nil, locks, nil, clock)

		if _, err := attendance.ListAttendanceEvents(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		stored, err := registry.GetEvent(context.Background(), "evt-past")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stored.Status != EventStatusCompleted {
			t.Fatalf("expected COMPLETED after lifecycle refresh, got %s", stored.Status)
		}
	})

	t.Run("serves cached summaries until invalidated", func(t *testing.T) {
		registry := newRegistryStub(openEvent("evt-1", intPtr(10)))
		ledger := &ledgerStub{}
		locks := NewEventLocks()
		publisher := &publisherStub{}
		cache := NewSummaryCache(time.Minute, nil)
		clock := steppingClock(time.Date(2026, time.May, 20, 10, 0, 0, 0, time.UTC), time.Second)

		registrations := NewRegistrationService(registry, ledger, publisher, locks, cache, sequentialIDs("reg"), clock)
		attendance := NewAttendanceService(registry, ledger, nil, publisher, locks, cache, clock)
		ctx := context.Background()

		first, err := attendance.ListAttendanceEvents(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first[0].RegisteredCount != 0 {
			t.Fatalf("expected empty event, got %+v", first[0])
		}

		if _, err := registrations.RequestRegistration(ctx, RequestRegistrationParams{UserID: "alice", EventID: "evt-1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		second, err := attendance.ListAttendanceEvents(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second[0].RegisteredCount != 1 {
			t.Fatalf("expected mutation to invalidate the cache, got %+v", second[0])
		}
	})
}
