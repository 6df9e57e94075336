// Package events fans sync lifecycle events out to live subscribers.
package events

import (
	"sync"
	"time"
)

// Event types published by the orchestrator
const (
	LaneStarted   = "lane.started"
	LaneSkipped   = "lane.skipped"
	LaneCompleted = "lane.completed"
	LaneFailed    = "lane.failed"
)

// Event is one lifecycle notification for a sync lane
type Event struct {
	Type      string         `json:"type"`
	Lane      string         `json:"lane"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher accepts events. Publishing never blocks the caller.
type Publisher interface {
	Publish(Event)
}

// Hub is an in-process broadcaster. Slow subscribers drop events rather
// than stall a sync run.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: map[chan Event]struct{}{}, buffer: buffer}
}

// Subscribe registers a new subscriber. Call the returned function to
// unsubscribe; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber with room in its buffer
func (h *Hub) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers reports the number of live subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
