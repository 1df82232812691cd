// ABOUTME: Message and Role types for conversation entries
// ABOUTME: Roles are explicit tags carried from creation, never inferred from display state

package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleHuman       Role = "human"
	RoleAssistant   Role = "assistant"
	RoleSystemError Role = "system_error"
)

// Message is a single conversation entry. A message is either provisional
// (still streaming, text mutable, excluded from model context) or committed
// (immutable, replayed into model context on later turns). System-error
// messages are committed immediately and are display-only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Author         string    `json:"author"`
	Text           string    `json:"text"`
	Timestamp      time.Time `json:"timestamp"`
	Provisional    bool      `json:"provisional,omitempty"`
}

// NewMessage creates a committed message with a generated ID.
func NewMessage(conversationID string, role Role, author, text string) *Message {
	return &Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Author:         author,
		Text:           text,
		Timestamp:      time.Now(),
	}
}

// NewProvisionalMessage creates an empty provisional assistant message.
// It exists only as a display placeholder until its exchange commits.
func NewProvisionalMessage(conversationID, author string) *Message {
	msg := NewMessage(conversationID, RoleAssistant, author, "")
	msg.Provisional = true
	return msg
}

// InModelContext reports whether this message is fed back to the model when
// rebuilding context for a later turn. Provisional messages are not finalized
// yet and system-error entries are display-only.
func (m *Message) InModelContext() bool {
	if m.Provisional {
		return false
	}
	return m.Role == RoleHuman || m.Role == RoleAssistant
}
