package conversation

import (
	"errors"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the in-memory timeline. LocalID is client-assigned
// and only used for list reconciliation; it is never sent to the server.
// A message with Pending set stands in for an in-flight assistant answer.
type Message struct {
	LocalID       string         `json:"-"`
	Role          Role           `json:"role"`
	Content       string         `json:"content"`
	Visualization *Visualization `json:"visualizations,omitempty"`
	Pending       bool           `json:"-"`
}

// Summary is a server-produced digest of a prior conversation. Read-only from
// the client's perspective; the list is refreshed wholesale.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	LastQuestion   string    `json:"last_question"`
	LastUpdatedAt  time.Time `json:"updated_at"`
}

var (
	// ErrPendingExists guards the single-placeholder invariant.
	ErrPendingExists = errors.New("conversation: pending placeholder already present")
)
