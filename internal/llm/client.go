// ABOUTME: Stream event types and the client contract for model responses
// ABOUTME: A stream is a finite FIFO sequence of fragments ending in Done or Error

package llm

import (
	"context"

	"github.com/brayanmnz/finassist/internal/chat"
)

// EventKind discriminates stream events.
type EventKind int

const (
	// EventFragment carries one incremental chunk of model output.
	EventFragment EventKind = iota
	// EventDone signals successful completion of the stream.
	EventDone
	// EventError signals stream failure; Err carries the cause.
	EventError
)

// Event is one element of a response stream. Fragments arrive in order; the
// stream ends with exactly one Done or Error event, after which the channel
// is closed.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// StreamClient produces a streamed chat response for a prompt given the
// ordered prior committed messages of the conversation. The returned channel
// is lazy, finite and non-restartable. An error return means the stream could
// not be opened at all.
type StreamClient interface {
	StreamChat(ctx context.Context, prompt string, prior []chat.ContextMessage) (<-chan Event, error)
}
