package events

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// TopicIntervalsReplaced is published after the interval table was bulk-replaced.
const TopicIntervalsReplaced = "intervals.replaced"

// Event is a lightweight in-process notification.
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// IntervalsReplaced is the payload of TopicIntervalsReplaced.
type IntervalsReplaced struct {
	Count int
	At    time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub keyed by event type.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for eventType.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every handler of event.Type synchronously and joins their errors.
// A nil bus drops the event.
func (b *Bus) Publish(event Event) error {
	if b == nil {
		return nil
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}
