// Package broadcast fans attendance aggregates out to live subscribers.
//
// Delivery is fire-and-forget: Publish never blocks on a subscriber, so a
// slow or absent consumer cannot stall the mutating operation that produced
// the update. Updates for a single event keep their production order as long
// as producers publish them sequentially, which the per-event serialization
// in the application layer guarantees.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// TopicAllEvents receives every published update.
const TopicAllEvents = "attendance-events"

// TopicEvent returns the per-event topic for the given event ID.
func TopicEvent(eventID string) string {
	return TopicAllEvents + "/" + eventID
}

// Update is the payload delivered to subscribers.
type Update struct {
	EventID          string  `json:"eventId"`
	RegisteredCount  int     `json:"registeredCount"`
	CheckedInCount   int     `json:"checkedInCount"`
	OccupancyPercent float64 `json:"occupancyPercent"`
	CheckedIn        *bool   `json:"checkedIn,omitempty"`
}

type subscriber struct {
	ch chan Update
}

// Broadcaster delivers updates to bounded per-subscriber queues.
type Broadcaster struct {
	mu      sync.RWMutex
	buffer  int
	nextID  uint64
	topics  map[string]map[uint64]*subscriber
	dropped atomic.Uint64
	logger  *slog.Logger
}

// New constructs a Broadcaster whose subscribers each get a queue of the
// given capacity.
func New(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		buffer: buffer,
		topics: make(map[string]map[uint64]*subscriber),
		logger: logger,
	}
}

// Subscribe registers a consumer for a topic. The returned cancel func
// removes the subscription and closes the channel; it is safe to call more
// than once.
func (b *Broadcaster) Subscribe(topic string) (<-chan Update, func()) {
	sub := &subscriber{ch: make(chan Update, b.buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[uint64]*subscriber)
		b.topics[topic] = subs
	}
	subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.topics[topic]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(b.topics, topic)
				}
			}
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers the update to the all-events topic and to the topic of
// the update's event. It never blocks: updates to a saturated subscriber
// queue are dropped and counted.
func (b *Broadcaster) Publish(update Update) {
	b.deliver(TopicAllEvents, update)
	b.deliver(TopicEvent(update.EventID), update)
}

// Dropped reports how many updates were discarded for slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broadcaster) deliver(topic string, update Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.topics[topic] {
		select {
		case sub.ch <- update:
		default:
			b.dropped.Add(1)
			b.logger.Warn("dropping update for slow subscriber",
				"topic", topic,
				"event_id", update.EventID,
			)
		}
	}
}
