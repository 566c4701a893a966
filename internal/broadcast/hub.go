package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
)

// Subscription is one live subscriber. Its channel is closed when the
// subscriber unsubscribes or is evicted for falling behind.
type Subscription struct {
	ID     string
	events chan Event
}

// Events returns the channel of events for this subscriber.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Hub fans events out to the subscribers connected to this instance.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a subscriber and returns a function to unsubscribe.
func (h *Hub) Subscribe() (*Subscription, func()) {
	sub := &Subscription{
		ID:     uuid.NewString(),
		events: make(chan Event, h.buffer),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()
	metrics.SetSubscribers(n)

	return sub, func() { h.remove(sub.ID) }
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Deliver offers ev to every subscriber without blocking. A subscriber whose
// buffer is full is evicted; it reconnects and starts from a new snapshot.
func (h *Hub) Deliver(ctx context.Context, ev Event) error {
	var evicted []string

	// Sends happen under the read lock so remove cannot close a channel mid-send.
	h.mu.RLock()
	for id, sub := range h.subs {
		select {
		case sub.events <- ev:
			metrics.RecordBroadcast("delivered")
		default:
			evicted = append(evicted, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range evicted {
		logger.Warn("Evicting slow subscriber", "subscriber_id", id, "event_type", ev.Type)
		metrics.RecordBroadcast("evicted")
		h.remove(id)
	}
	return nil
}

// Close evicts every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, sub := range h.subs {
		close(sub.events)
		delete(h.subs, id)
	}
	h.mu.Unlock()
	metrics.SetSubscribers(0)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		close(sub.events)
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		metrics.SetSubscribers(n)
	}
}
