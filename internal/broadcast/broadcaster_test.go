package broadcast

import (
	"testing"
)

func TestBroadcaster_PublishReachesBothTopics(t *testing.T) {
	b := New(4, nil)

	all, cancelAll := b.Subscribe(TopicAllEvents)
	defer cancelAll()
	scoped, cancelScoped := b.Subscribe(TopicEvent("evt-1"))
	defer cancelScoped()
	other, cancelOther := b.Subscribe(TopicEvent("evt-2"))
	defer cancelOther()

	b.Publish(Update{EventID: "evt-1", RegisteredCount: 5, CheckedInCount: 2, OccupancyPercent: 40})

	got := <-all
	if got.EventID != "evt-1" || got.RegisteredCount != 5 {
		t.Fatalf("unexpected update on all-events topic: %+v", got)
	}

	got = <-scoped
	if got.EventID != "evt-1" || got.CheckedInCount != 2 {
		t.Fatalf("unexpected update on event topic: %+v", got)
	}

	select {
	case update := <-other:
		t.Fatalf("expected no update for evt-2, got %+v", update)
	default:
	}
}

func TestBroadcaster_PreservesOrderPerSubscriber(t *testing.T) {
	b := New(8, nil)

	updates, cancel := b.Subscribe(TopicEvent("evt-1"))
	defer cancel()

	for i := 1; i <= 5; i++ {
		b.Publish(Update{EventID: "evt-1", RegisteredCount: i})
	}

	for i := 1; i <= 5; i++ {
		got := <-updates
		if got.RegisteredCount != i {
			t.Fatalf("expected update %d in order, got %d", i, got.RegisteredCount)
		}
	}
}

func TestBroadcaster_DropsWhenSubscriberIsSaturated(t *testing.T) {
	b := New(2, nil)

	updates, cancel := b.Subscribe(TopicEvent("evt-1"))
	defer cancel()

	for i := 1; i <= 5; i++ {
		b.Publish(Update{EventID: "evt-1", RegisteredCount: i})
	}

	if b.Dropped() != 3 {
		t.Fatalf("expected 3 dropped updates, got %d", b.Dropped())
	}

	// The oldest buffered updates survive; nothing blocks the publisher.
	got := <-updates
	if got.RegisteredCount != 1 {
		t.Fatalf("expected first buffered update, got %d", got.RegisteredCount)
	}
	got = <-updates
	if got.RegisteredCount != 2 {
		t.Fatalf("expected second buffered update, got %d", got.RegisteredCount)
	}
}

func TestBroadcaster_CancelClosesAndUnsubscribes(t *testing.T) {
	b := New(4, nil)

	updates, cancel := b.Subscribe(TopicEvent("evt-1"))
	cancel()
	cancel() // repeat cancellation is safe

	if _, open := <-updates; open {
		t.Fatal("expected channel to be closed after cancel")
	}

	// Publishing after cancel must not panic or count a drop.
	b.Publish(Update{EventID: "evt-1"})
	if b.Dropped() != 0 {
		t.Fatalf("expected no drops after unsubscribe, got %d", b.Dropped())
	}
}
