// services/events.go - In-process broadcast hub for evaluation transitions
package services

import (
	"sync"
	"time"

	"puzzlearena/models"

	"github.com/google/uuid"
)

// Event is pushed to websocket subscribers whenever a level's evaluation
// state changes, so dashboards re-render from the authoritative state instead
// of polling blind.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Level     int                    `json:"level"`
	State     models.EvaluationState `json:"state"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventHub fans events out to subscribers. Slow subscribers are skipped
// rather than blocking a transition.
type EventHub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered channel of events. The caller must
// Unsubscribe when done.
func (h *EventHub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers an event to every subscriber without blocking.
func (h *EventHub) Publish(eventType string, level int, state models.EvaluationState) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Level:     level,
		State:     state,
		Timestamp: time.Now(),
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
