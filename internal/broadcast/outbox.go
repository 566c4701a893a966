package broadcast

import (
	"context"
	"sync"
	"time"

	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/metrics"
)

const deliveryTimeout = 5 * time.Second

// Outbox decouples emission from the mutating call. Publish enqueues without
// blocking; a single worker hands each event to every sink in order.
type Outbox struct {
	queue chan Event
	sinks []Sink

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewOutbox(size int, sinks ...Sink) *Outbox {
	if size <= 0 {
		size = 1024
	}
	return &Outbox{
		queue: make(chan Event, size),
		sinks: sinks,
		done:  make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (o *Outbox) Start() {
	go func() {
		defer close(o.done)
		for ev := range o.queue {
			o.dispatch(ev)
		}
	}()
}

// Publish enqueues events. When the queue is full or the outbox is closed
// the event is dropped and logged; the caller never sees an error.
func (o *Outbox) Publish(events ...Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ev := range events {
		if o.closed {
			logger.Warn("Dropping event after outbox shutdown", "event_id", ev.ID, "type", ev.Type)
			metrics.RecordBroadcast("dropped")
			continue
		}
		select {
		case o.queue <- ev:
			metrics.RecordBroadcast("queued")
		default:
			logger.Warn("Outbox full, dropping event", "event_id", ev.ID, "type", ev.Type)
			metrics.RecordBroadcast("dropped")
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()

	<-o.done
}

func (o *Outbox) dispatch(ev Event) {
	for _, sink := range o.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := sink.Deliver(ctx, ev); err != nil {
			logger.Warn("Event delivery failed", "event_id", ev.ID, "type", ev.Type, "error", err)
			metrics.RecordBroadcast("failed")
		}
		cancel()
	}
}
