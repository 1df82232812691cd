// ABOUTME: StreamingExchange state for one in-flight user-to-assistant cycle
// ABOUTME: Owned exclusively by the conversation's apply loop after creation

package orchestrator

import (
	"strings"

	"github.com/brayanmnz/finassist/internal/chat"
)

// Status is the lifecycle state of a streaming exchange.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusCompleted
	StatusFailed
	StatusTimedOut
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// exchange tracks one streaming response. After Submit hands it to the
// conversation's apply loop, all field access happens from that loop only.
type exchange struct {
	id             string
	conversationID string
	placeholder    *chat.Message
	ref            PlaceholderRef
	buffer         strings.Builder
	status         Status
}

// terminal reports whether the exchange already reached a terminal state.
func (e *exchange) terminal() bool {
	switch e.status {
	case StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}
