// Package nav binds the externally-visible conversation id to the
// conversation store. The id is derived state: whenever it changes, the
// store is told to load the matching history or to reset for a new chat.
package nav

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"novusai.org/internal/audit"
	"novusai.org/internal/conversation"
	"novusai.org/internal/stream"
)

// WelcomeText seeds every fresh conversation.
const WelcomeText = "NovusAI Analysis Mode Ready. Please specify a drug candidate and target indication to begin evidence synthesis."

// Loader is the slice of the API surface the binding needs.
type Loader interface {
	GetConversation(ctx context.Context, id string) ([]conversation.Message, error)
}

// Binding translates "the externally-visible id changed" events into store
// commands.
type Binding struct {
	store  *conversation.Store
	client Loader
	bus    *stream.Bus

	// resetDelay postpones the new-chat reset for a short fixed window so a
	// UI can play an exit transition. Zero means immediate; correctness
	// never depends on the delay.
	resetDelay time.Duration

	mu        sync.Mutex
	resetting bool
}

// Option configures Binding behavior.
type Option func(*Binding)

// WithBus publishes navigation events on the given bus.
func WithBus(bus *stream.Bus) Option {
	return func(b *Binding) { b.bus = bus }
}

// WithResetDelay sets the exit-transition window for NewChat.
func WithResetDelay(d time.Duration) Option {
	return func(b *Binding) {
		if d > 0 {
			b.resetDelay = d
		}
	}
}

// New wires a binding to its collaborators.
func New(store *conversation.Store, client Loader, opts ...Option) *Binding {
	b := &Binding{store: store, client: client}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Navigate reacts to a changed externally-visible id. An empty id starts a
// new conversation; anything else loads the matching history.
func (b *Binding) Navigate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		b.NewChat()
		return nil
	}

	msgs, err := b.client.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation %s: %w", id, err)
	}
	b.store.Load(id, msgs)

	_ = audit.LogEvent(ctx, "nav.navigate", map[string]any{"conversation_id": id})
	b.bus.Publish(stream.Event{Kind: stream.KindConversation, ConversationID: id})
	b.bus.Publish(stream.Event{Kind: stream.KindMessages, ConversationID: id})
	b.bus.Publish(stream.Event{Kind: stream.KindVisualization, ConversationID: id})
	return nil
}

// NewChat clears the id and resets the store to a single welcome message.
// While a reset window is open, further NewChat calls are ignored.
func (b *Binding) NewChat() {
	b.mu.Lock()
	if b.resetting {
		b.mu.Unlock()
		return
	}
	if b.resetDelay <= 0 {
		b.mu.Unlock()
		b.reset()
		return
	}
	b.resetting = true
	b.mu.Unlock()

	time.AfterFunc(b.resetDelay, func() {
		b.mu.Lock()
		b.resetting = false
		b.mu.Unlock()
		// A navigation that landed inside the window has already bound the
		// store to a conversation; it wins over the stale reset.
		if b.store.ActiveID() != "" {
			return
		}
		b.reset()
	})
}

// Resetting reports whether an exit-transition window is open; a renderer
// may suppress output until it closes.
func (b *Binding) Resetting() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resetting
}

func (b *Binding) reset() {
	b.store.Reset()
	b.store.AppendAssistant(WelcomeText, nil)

	b.bus.Publish(stream.Event{Kind: stream.KindConversation})
	b.bus.Publish(stream.Event{Kind: stream.KindMessages})
	b.bus.Publish(stream.Event{Kind: stream.KindVisualization})
}
