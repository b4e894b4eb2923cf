package comms

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryBus is a thread-safe in-process event bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[Code][]handlerEntry
	history  []*Event
	maxHist  int
	nextID   int
}

type handlerEntry struct {
	id      int
	handler Handler
}

// NewInMemoryBus creates an InMemoryBus with a 1000-event history cap.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[Code][]handlerEntry),
		maxHist:  1000,
	}
}

// Publish records the event and delivers it to subscribers of its code plus
// every MatchAll subscriber. Handlers run outside the lock, so a handler may
// publish follow-up events.
func (b *InMemoryBus) Publish(ctx context.Context, evt *Event) error {
	b.mu.Lock()
	b.history = append(b.history, evt)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}

	var targets []Handler
	for _, e := range b.handlers[evt.Code] {
		targets = append(targets, e.handler)
	}
	for _, e := range b.handlers[MatchAll] {
		targets = append(targets, e.handler)
	}
	b.mu.Unlock()

	var failures []error
	for _, h := range targets {
		if err := h(ctx, evt); err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("publish %s: %d handler error(s): %v", evt.Code, len(failures), failures[0])
	}
	return nil
}

// Subscribe registers a handler for events with the given code, or for all
// events when code is MatchAll. The returned function unsubscribes it.
func (b *InMemoryBus) Subscribe(code Code, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[code] = append(b.handlers[code], handlerEntry{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[code]
		filtered := entries[:0]
		for _, e := range entries {
			if e.id != id {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) == 0 {
			delete(b.handlers, code)
		} else {
			b.handlers[code] = filtered
		}
	}
}

// History returns the most recent limit events in chronological order.
// A non-positive limit returns everything retained.
func (b *InMemoryBus) History(limit int) []*Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if limit > 0 && len(b.history) > limit {
		start = len(b.history) - limit
	}
	out := make([]*Event, len(b.history)-start)
	copy(out, b.history[start:])
	return out
}
