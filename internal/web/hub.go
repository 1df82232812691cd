// ABOUTME: Hub fans stream events out to SSE subscribers per conversation
// ABOUTME: Sends are non-blocking; slow subscribers lose events, never stall streaming

package web

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const sessionBufferSize = 64

// streamSession is one attached SSE client.
type streamSession struct {
	mu     sync.RWMutex
	events chan *StreamEvent
	closed bool
}

// send delivers an event without blocking. Returns false if the session is
// closed or its buffer is full.
func (s *streamSession) send(ev *StreamEvent) bool {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return false
	}
	// Hold the read lock while sending to prevent close during send
	select {
	case s.events <- ev:
		s.mu.RUnlock()
		return true
	default:
		s.mu.RUnlock()
		return false
	}
}

func (s *streamSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

// Hub tracks the SSE subscribers of each conversation and fans stream
// events out to them. A conversation with at least one subscriber has a
// live rendering target.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*streamSession // conversationID -> sessionID -> session
	logger   *slog.Logger
}

// NewHub creates a hub. Pass nil logger for the default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[string]map[string]*streamSession),
		logger:   logger.With("component", "web-hub"),
	}
}

// Subscribe attaches a new session to a conversation and returns its event
// channel plus an id for Unsubscribe.
func (h *Hub) Subscribe(conversationID string) (<-chan *StreamEvent, string) {
	session := &streamSession{events: make(chan *StreamEvent, sessionBufferSize)}
	id := uuid.New().String()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[conversationID] == nil {
		h.sessions[conversationID] = make(map[string]*streamSession)
	}
	h.sessions[conversationID][id] = session

	h.logger.Debug("session subscribed", "conversation_id", conversationID, "session_id", id)
	return session.events, id
}

// Unsubscribe detaches and closes a session.
func (h *Hub) Unsubscribe(conversationID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.sessions[conversationID]
	if !ok {
		return
	}
	session, ok := sessions[sessionID]
	if !ok {
		return
	}
	session.close()
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(h.sessions, conversationID)
	}
}

// Publish sends an event to every session of the conversation. Events to
// full or closed sessions are dropped.
func (h *Hub) Publish(conversationID string, ev *StreamEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, session := range h.sessions[conversationID] {
		if !session.send(ev) {
			h.logger.Debug("dropped stream event",
				"conversation_id", conversationID,
				"session_id", id,
				"type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of sessions attached to a conversation.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[conversationID])
}

// Close shuts down every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conversationID, sessions := range h.sessions {
		for id, session := range sessions {
			session.close()
			delete(sessions, id)
		}
		delete(h.sessions, conversationID)
	}
}
