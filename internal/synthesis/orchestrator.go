// Package synthesis drives one user turn against the synthesis engine:
// optimistic append, single round trip, in-place resolution.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"novusai.org/internal/api"
	"novusai.org/internal/audit"
	"novusai.org/internal/conversation"
	"novusai.org/internal/obs"
	"novusai.org/internal/stream"
)

// ErrorText replaces the placeholder when the round trip fails. The user's
// original message stays in the timeline and nothing is retried.
const ErrorText = "Synthesis error. Please verify engine connectivity."

// Client is the slice of the API surface the orchestrator needs.
type Client interface {
	Synthesize(ctx context.Context, message, conversationID string) (api.SynthesisResult, error)
	ListConversationSummaries(ctx context.Context) ([]conversation.Summary, error)
}

// Orchestrator serialises synthesis turns. A boolean busy flag gates new
// sends until the in-flight one resolves; a second send while busy is
// dropped, not queued.
type Orchestrator struct {
	mu   sync.Mutex
	busy bool

	store  *conversation.Store
	client Client
	bus    *stream.Bus
}

// Option configures Orchestrator behavior.
type Option func(*Orchestrator)

// WithBus publishes timeline and history events on the given bus.
func WithBus(bus *stream.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// New wires an orchestrator to its collaborators.
func New(store *conversation.Store, client Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: store, client: client}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Send runs one turn. It reports false when the input was dropped without
// side effects: empty after trimming, or a previous turn still in flight.
func (o *Orchestrator) Send(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return false
	}
	o.busy = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	startID := o.store.ActiveID()
	o.store.AppendUser(text)
	if _, err := o.store.AppendPending(); err != nil {
		// Unreachable while the busy gate holds; bail out rather than risk a
		// second placeholder.
		return false
	}
	o.publish(stream.Event{Kind: stream.KindMessages, ConversationID: startID})

	res, err := o.client.Synthesize(ctx, text, startID)
	if err != nil {
		o.finishFailed(ctx, startID, err)
		return true
	}

	// The user may have switched conversations or started a new chat while
	// the call was in flight; both drop the placeholder, so a failed
	// resolution means this turn's conversation is gone and the late answer
	// must not touch the timeline, the id or the side panel.
	if !o.store.ResolvePending(res.Answer, res.Visualization) {
		obs.CountSynthesisTurn("stale")
		_ = audit.LogEvent(ctx, "synthesis.turn", map[string]any{
			"outcome":         "stale",
			"conversation_id": res.ConversationID,
		})
		return true
	}

	if startID == "" && res.ConversationID != "" {
		o.store.Bind(res.ConversationID)
		o.publish(stream.Event{Kind: stream.KindConversation, ConversationID: res.ConversationID})
		if err := o.RefreshSummaries(ctx); err != nil {
			obs.LogEvent(map[string]any{"level": "warn", "msg": "summary refresh failed", "error": err.Error()})
		}
	}

	o.publish(stream.Event{Kind: stream.KindMessages, ConversationID: o.store.ActiveID()})
	if res.Visualization != nil {
		o.store.SetActiveVisualization(res.Visualization)
		o.publish(stream.Event{Kind: stream.KindVisualization, ConversationID: o.store.ActiveID()})
	}

	obs.CountSynthesisTurn("ok")
	_ = audit.LogEvent(ctx, "synthesis.turn", map[string]any{
		"outcome":         "ok",
		"conversation_id": o.store.ActiveID(),
	})
	return true
}

func (o *Orchestrator) finishFailed(ctx context.Context, startID string, err error) {
	if o.store.ResolvePending(ErrorText, nil) {
		o.publish(stream.Event{Kind: stream.KindMessages, ConversationID: startID})
	}
	obs.CountSynthesisTurn("failed")
	_ = audit.LogEvent(ctx, "synthesis.turn", map[string]any{
		"outcome":         "failed",
		"conversation_id": startID,
		"error":           err.Error(),
	})
}

// RefreshSummaries replaces the prior-conversation list wholesale.
func (o *Orchestrator) RefreshSummaries(ctx context.Context) error {
	list, err := o.client.ListConversationSummaries(ctx)
	if err != nil {
		return fmt.Errorf("refresh summaries: %w", err)
	}
	o.store.SetSummaries(list)
	o.publish(stream.Event{Kind: stream.KindHistory})
	return nil
}

func (o *Orchestrator) publish(evt stream.Event) {
	o.bus.Publish(evt)
}
