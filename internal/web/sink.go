// ABOUTME: Sink adapts the hub into the orchestrator's display mutation contract
// ABOUTME: Liveness is having at least one attached SSE session

package web

import (
	"github.com/google/uuid"

	"github.com/brayanmnz/finassist/internal/orchestrator"
)

// Sink turns display mutations into stream events for the hub's
// subscribers. A conversation nobody is watching is not alive, which lets
// the orchestrator skip display work while still committing history.
type Sink struct {
	hub *Hub
}

func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

var _ orchestrator.UISink = (*Sink)(nil)

func (s *Sink) Alive(conversationID string) bool {
	return s.hub.SubscriberCount(conversationID) > 0
}

func (s *Sink) InsertPlaceholder(conversationID string) orchestrator.PlaceholderRef {
	ref := orchestrator.PlaceholderRef(uuid.New().String())
	s.hub.Publish(conversationID, placeholderEvent(conversationID, ref))
	return ref
}

func (s *Sink) Mutate(conversationID string, ref orchestrator.PlaceholderRef, fullText string) {
	s.hub.Publish(conversationID, updateEvent(conversationID, ref, fullText))
}

func (s *Sink) Remove(conversationID string, ref orchestrator.PlaceholderRef) {
	s.hub.Publish(conversationID, removeEvent(conversationID, ref))
}
