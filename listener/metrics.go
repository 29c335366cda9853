package listener

import (
	"context"
	"sync"

	"github.com/dshelkov/imagestore/event"
)

// EventMetrics counts dispatched events in memory; safe for concurrent use.
type EventMetrics struct {
	mu     sync.RWMutex
	counts map[string]int64
	events []string
}

// NewEventMetrics creates a collector for the given event names; with no
// names it observes the standard dispatch events.
func NewEventMetrics(events ...string) *EventMetrics {
	if len(events) == 0 {
		events = Events
	}
	return &EventMetrics{
		counts: make(map[string]int64, len(events)),
		events: events,
	}
}

// Attach registers a counting handler ahead of the dispatch listeners.
func (m *EventMetrics) Attach(b *event.Bus) {
	for _, name := range m.events {
		name := name
		b.Attach(name, 90, func(context.Context, *event.Context) error {
			m.mu.Lock()
			m.counts[name]++
			m.mu.Unlock()
			return nil
		})
	}
}

// Snapshot returns a copy of the current per-event counts.
func (m *EventMetrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		snap[k] = v
	}
	return snap
}
