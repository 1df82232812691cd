// ABOUTME: Stream event payloads pushed to web clients over SSE
// ABOUTME: Placeholder lifecycle events and committed message events share one shape

package web

import (
	"time"

	"github.com/brayanmnz/finassist/internal/chat"
	"github.com/brayanmnz/finassist/internal/orchestrator"
)

// Event types sent on the SSE stream.
const (
	eventPlaceholder = "placeholder" // a pending assistant entry appeared
	eventUpdate      = "update"      // the pending entry's full text changed
	eventRemove      = "remove"      // the pending entry went away
	eventMessage     = "message"     // a message was committed to history
)

// StreamEvent is one display update for a conversation. Update events carry
// the complete accumulated text, never a delta, so a client can apply each
// one as a straight replacement.
type StreamEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Ref            string    `json:"ref,omitempty"`
	MessageID      string    `json:"message_id,omitempty"`
	Role           string    `json:"role,omitempty"`
	Author         string    `json:"author,omitempty"`
	Text           string    `json:"text,omitempty"`
	HTML           string    `json:"html,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func placeholderEvent(conversationID string, ref orchestrator.PlaceholderRef) *StreamEvent {
	return &StreamEvent{
		Type:           eventPlaceholder,
		ConversationID: conversationID,
		Ref:            string(ref),
		Timestamp:      time.Now(),
	}
}

func updateEvent(conversationID string, ref orchestrator.PlaceholderRef, fullText string) *StreamEvent {
	return &StreamEvent{
		Type:           eventUpdate,
		ConversationID: conversationID,
		Ref:            string(ref),
		Text:           fullText,
		Timestamp:      time.Now(),
	}
}

func removeEvent(conversationID string, ref orchestrator.PlaceholderRef) *StreamEvent {
	return &StreamEvent{
		Type:           eventRemove,
		ConversationID: conversationID,
		Ref:            string(ref),
		Timestamp:      time.Now(),
	}
}

func messageEvent(msg *chat.Message, html string) *StreamEvent {
	return &StreamEvent{
		Type:           eventMessage,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		Role:           string(msg.Role),
		Author:         msg.Author,
		Text:           msg.Text,
		HTML:           html,
		Timestamp:      msg.Timestamp,
	}
}
