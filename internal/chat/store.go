// ABOUTME: In-memory per-conversation message history keyed by conversation id
// ABOUTME: History is the source of truth for model context; snapshots never mutate retroactively

package chat

import (
	"errors"
	"sync"
)

// ErrUnknownConversation is returned when a conversation id is not on the
// configured allow-list. With no allow-list every id is valid and
// conversations are created lazily on first touch.
var ErrUnknownConversation = errors.New("unknown conversation")

// ConversationStore holds the ordered history of each conversation,
// including at most one provisional entry while an exchange streams. All
// methods are safe for concurrent use; the store itself carries no
// persistence across restarts.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string][]*Message
	allowed       map[string]struct{} // nil means any id is valid
}

// NewConversationStore creates a store. If allowed is non-empty, only those
// conversation ids are valid; otherwise conversations are created on demand.
func NewConversationStore(allowed []string) *ConversationStore {
	s := &ConversationStore{
		conversations: make(map[string][]*Message),
	}
	if len(allowed) > 0 {
		s.allowed = make(map[string]struct{}, len(allowed))
		for _, id := range allowed {
			s.allowed[id] = struct{}{}
		}
	}
	return s
}

// Valid reports whether the conversation id may be used.
func (s *ConversationStore) Valid(conversationID string) bool {
	if s.allowed == nil {
		return conversationID != ""
	}
	_, ok := s.allowed[conversationID]
	return ok
}

// Append adds a message to the end of the conversation's history, creating
// the conversation on first touch.
func (s *ConversationStore) Append(conversationID string, msg *Message) error {
	if !s.Valid(conversationID) {
		return ErrUnknownConversation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversationID] = append(s.conversations[conversationID], msg)
	return nil
}

// History returns a snapshot of the conversation's messages in insertion
// order. Appends made after the call do not affect an already-returned slice.
func (s *ConversationStore) History(conversationID string) []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.conversations[conversationID]
	snapshot := make([]*Message, len(msgs))
	copy(snapshot, msgs)
	return snapshot
}

// ReplaceLast swaps the most recent message of the conversation for msg.
// Used at commit time to turn the provisional placeholder into the final
// assistant entry. No-op on an empty or unknown conversation.
func (s *ConversationStore) ReplaceLast(conversationID string, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.conversations[conversationID]
	if len(msgs) == 0 {
		return
	}
	msgs[len(msgs)-1] = msg
}

// RemoveIfPresent deletes the message with the given id from the conversation
// if it exists. Returns true if a message was removed.
func (s *ConversationStore) RemoveIfPresent(conversationID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.conversations[conversationID]
	for i, m := range msgs {
		if m.ID == messageID {
			s.conversations[conversationID] = append(msgs[:i], msgs[i+1:]...)
			return true
		}
	}
	return false
}
