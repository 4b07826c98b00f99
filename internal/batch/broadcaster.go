package batch

import (
	"log/slog"
	"sync"
)

// subscriberBuffer bounds each subscriber's channel; a subscriber that
// falls this far behind is dropped rather than allowed to stall
// publication.
const subscriberBuffer = 16

// Broadcaster fans job snapshots out to every current subscriber.
// Delivery to one subscriber is independent of the others: a full or
// dead channel removes that subscriber and never blocks the publisher.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
	log    *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		subs: make(map[int]chan Snapshot),
		log:  log,
	}
}

// Subscribe registers a new observer and returns its channel plus an
// idempotent unsubscribe function. Subscribers receive only snapshots
// published after registration; there is no history replay.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Snapshot, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			close(c)
			delete(b.subs, id)
		}
	}
	return ch, unsub
}

// Publish delivers the snapshot to every registered subscriber. A
// subscriber whose buffer is full is dropped so one slow consumer
// cannot delay the rest; the call never blocks or fails.
func (b *Broadcaster) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- s:
		default:
			b.log.Warn("dropping slow subscriber", "subscriber", id, "job", s.JobID)
			close(ch)
			delete(b.subs, id)
		}
	}
}

// SubscriberCount reports the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscribers and rejects future ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
