package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TypeScheduleUpdated is published after a schedule edit is stored.
const TypeScheduleUpdated = "schedule.updated"

// Event represents a lightweight domain event.
type Event struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// ScheduleUpdated is the payload of TypeScheduleUpdated.
type ScheduleUpdated struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Revision       int64     `json:"revision"`
	ActorID        uuid.UUID `json:"actor_id"`
}

// NewScheduleUpdated builds the event for an accepted edit.
func NewScheduleUpdated(p ScheduleUpdated) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.New(), Type: TypeScheduleUpdated, Payload: payload}, nil
}

// DecodeScheduleUpdated reads the payload of a TypeScheduleUpdated event.
func DecodeScheduleUpdated(e Event) (ScheduleUpdated, error) {
	var p ScheduleUpdated
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type and returns the first
// handler error. Every handler runs regardless.
func (b *EventBus) Publish(event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var first error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
