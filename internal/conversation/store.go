package conversation

import (
	"sync"

	"novusai.org/internal/ids"
)

// Store owns the active conversation: the ordered message timeline, the
// externally-visible conversation id and the list of prior conversation
// summaries. All mutation goes through it so the single-placeholder
// invariant holds at every observable instant.
type Store struct {
	mu        sync.RWMutex
	activeID  string
	messages  []Message
	pendingID string // local id of the placeholder, "" when none
	summaries []Summary
	activeViz *Visualization
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{}
}

// Reset empties the timeline and clears the externally-visible id. Used for
// "start a new conversation". The summary list is left alone; it describes
// other conversations.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
	s.messages = nil
	s.pendingID = ""
	s.activeViz = nil
}

// Load replaces the timeline with a fetched history and binds the store to
// id. Messages without a local id are assigned one; any pending marker is
// dropped since fetched history is final by definition. The most recent
// message carrying a visualization becomes the active side-panel payload.
func (s *Store) Load(id string, msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make([]Message, len(msgs))
	copy(loaded, msgs)
	var lastViz *Visualization
	for i := range loaded {
		if loaded[i].LocalID == "" {
			loaded[i].LocalID = ids.NewLocal()
		}
		loaded[i].Pending = false
		if loaded[i].Visualization != nil {
			lastViz = loaded[i].Visualization
		}
	}

	s.activeID = id
	s.messages = loaded
	s.pendingID = ""
	s.activeViz = lastViz
}

// AppendUser appends the user's message to the timeline.
func (s *Store) AppendUser(content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{LocalID: ids.NewLocal(), Role: RoleUser, Content: content}
	s.messages = append(s.messages, msg)
	return msg
}

// AppendAssistant appends a final assistant message, e.g. the canned welcome.
func (s *Store) AppendAssistant(content string, viz *Visualization) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := Message{LocalID: ids.NewLocal(), Role: RoleAssistant, Content: content, Visualization: viz}
	s.messages = append(s.messages, msg)
	return msg
}

// AppendPending appends the assistant placeholder for an in-flight answer.
// At most one placeholder may exist and it is always the last message.
func (s *Store) AppendPending() (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID != "" {
		return Message{}, ErrPendingExists
	}
	msg := Message{LocalID: ids.NewLocal(), Role: RoleAssistant, Pending: true}
	s.messages = append(s.messages, msg)
	s.pendingID = msg.LocalID
	return msg, nil
}

// ResolvePending replaces the placeholder in place with the final content and
// optional visualization. The placeholder is located by its reserved local
// id, not by position. Returns false when no placeholder exists anymore, so
// a resolution arriving after Reset or Load is a safe no-op.
func (s *Store) ResolvePending(content string, viz *Visualization) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingID == "" {
		return false
	}
	for i := range s.messages {
		if s.messages[i].LocalID != s.pendingID {
			continue
		}
		s.messages[i].Content = content
		s.messages[i].Visualization = viz
		s.messages[i].Pending = false
		s.pendingID = ""
		return true
	}
	// Reserved id without a matching message means the timeline was swapped
	// underneath us; drop the reservation.
	s.pendingID = ""
	return false
}

// HasPending reports whether a placeholder is currently in the timeline.
func (s *Store) HasPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingID != ""
}

// Messages returns a copy of the timeline.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ActiveID returns the externally-visible conversation id, "" for a new
// conversation that the server has not named yet.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Bind adopts a server-assigned conversation id without reloading: the local
// timeline is already authoritative for the turn that produced the id.
func (s *Store) Bind(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// ActiveVisualization returns the payload currently shown in the side panel.
func (s *Store) ActiveVisualization() *Visualization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeViz
}

// SetActiveVisualization replaces the side-panel payload.
func (s *Store) SetActiveVisualization(viz *Visualization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeViz = viz
}

// SetSummaries replaces the prior-conversation list wholesale.
func (s *Store) SetSummaries(list []Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = make([]Summary, len(list))
	copy(s.summaries, list)
}

// Summaries returns a copy of the prior-conversation list.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}
