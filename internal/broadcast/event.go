// Package broadcast carries committed inventory and rental changes to
// push-channel subscribers. Publishing never blocks or fails a mutation:
// events enter an outbox after the transaction commits and a single worker
// fans them out to the local hub and, when configured, to other instances.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
)

// EventType classifies a change event.
type EventType string

const (
	EventSnapshot            EventType = "snapshot"
	EventGameQuantityChanged EventType = "game-quantity-changed"
	EventGameDeleted         EventType = "game-deleted"
	EventRentalCreated       EventType = "rental-created"
	EventRentalStatusChanged EventType = "rental-status-changed"
	EventRentalDeleted       EventType = "rental-deleted"
)

// Event is the message written to subscribers.
type Event struct {
	ID        string          `json:"id,omitempty"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Snapshot is the full state a new subscriber starts from.
type Snapshot struct {
	Games   []domain.Game   `json:"games"`
	Rentals []domain.Rental `json:"rentals"`
}

type deletedPayload struct {
	ID int32 `json:"id"`
}

// Publisher accepts committed events. Implementations must not block.
type Publisher interface {
	Publish(events ...Event)
}

// Discard drops every event. Processes that run without subscribers use it.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(...Event) {}

// Sink receives events from the outbox worker.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// NewEvent builds an event with a fresh id. Payloads are domain records,
// so a marshal failure is logged and sent as null.
func NewEvent(t EventType, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to encode event payload", "type", t, "error", err)
		data = json.RawMessage("null")
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}
}

func GameChanged(game *domain.Game) Event {
	return NewEvent(EventGameQuantityChanged, game)
}

func GameDeleted(id int32) Event {
	return NewEvent(EventGameDeleted, deletedPayload{ID: id})
}

func RentalCreated(rental *domain.Rental) Event {
	return NewEvent(EventRentalCreated, rental)
}

func RentalStatusChanged(rental *domain.Rental) Event {
	return NewEvent(EventRentalStatusChanged, rental)
}

func RentalDeleted(id int32) Event {
	return NewEvent(EventRentalDeleted, deletedPayload{ID: id})
}

// SnapshotEvent wraps s as the first message of a subscription.
func SnapshotEvent(s *Snapshot) Event {
	ev := NewEvent(EventSnapshot, s)
	ev.ID = ""
	return ev
}
