// Package stream fan-outs core state-change events to UI subscribers.
// The core never renders anything itself; presentation layers subscribe
// here and re-read the stores when an event arrives.
package stream

import (
	"context"
	"sync"
	"time"
)

// Kind identifies which part of the core changed.
type Kind string

const (
	// KindSession fires on every auth state machine transition.
	KindSession Kind = "session"
	// KindConversation fires when the externally-visible conversation id changes.
	KindConversation Kind = "conversation"
	// KindMessages fires when the message timeline changes.
	KindMessages Kind = "messages"
	// KindHistory fires when the conversation-summary list is replaced.
	KindHistory Kind = "history"
	// KindVisualization fires when the active side-panel visualization changes.
	KindVisualization Kind = "visualization"
)

// Event describes a single observable state change.
type Event struct {
	Kind           Kind      `json:"kind"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Bus fan-outs events to all active subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. A nil bus is a no-op so
// components can be wired without one in tests.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking the core.
		}
	}
}
