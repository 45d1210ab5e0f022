// Package service fans view changes out to the connected browser streams.
package service

import "sync"

// Kind names what part of the view an Event updates.
type Kind string

const (
	KindMarkers    Kind = "markers"
	KindLegend     Kind = "legend"
	KindRegions    Kind = "regions"
	KindBoundaries Kind = "boundaries"
	KindViewport   Kind = "viewport"
	KindPopup      Kind = "popup"
	KindPins       Kind = "pins"
	KindPinPopup   Kind = "pin-popup"
	KindSearch     Kind = "search"
)

// Event is one view change. Payload type depends on Kind.
type Event struct {
	Kind    Kind
	Payload any
}

// EventBus is a simple fan-out pub/sub for view change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	size int
}

// NewEventBus creates a new event bus whose subscribers buffer size events.
func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 64
	}
	return &EventBus{subs: make(map[chan Event]struct{}), size: size}
}

// Publish sends an event to all subscribers (non-blocking). Events carry
// state, so a subscriber whose buffer is full is cut off: its channel is
// closed and it must resubscribe and repaint from a fresh snapshot.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, b.size)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Channels already
// cut off by Publish are left alone.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

// Subscribers returns the number of attached subscribers.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
