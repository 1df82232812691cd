// ABOUTME: Scripted StreamClient that plays back canned fragments or a failure
// ABOUTME: Used in tests and by `finassist serve --demo` when no model is configured

package llm

import (
	"context"
	"sync"
	"time"

	"github.com/brayanmnz/finassist/internal/chat"
)

// ScriptedClient replays a fixed fragment script for every prompt. If Fail is
// set the stream ends with that error instead of completing. A zero Delay
// delivers fragments immediately.
type ScriptedClient struct {
	Fragments []string
	Fail      error
	Delay     time.Duration

	mu    sync.Mutex
	calls []ScriptedCall
}

// ScriptedCall records one StreamChat invocation for assertions.
type ScriptedCall struct {
	Prompt string
	Prior  []chat.ContextMessage
}

// StreamChat plays the script. Fragment order matches the script order.
func (c *ScriptedClient) StreamChat(ctx context.Context, prompt string, prior []chat.ContextMessage) (<-chan Event, error) {
	c.mu.Lock()
	priorCopy := make([]chat.ContextMessage, len(prior))
	copy(priorCopy, prior)
	c.calls = append(c.calls, ScriptedCall{Prompt: prompt, Prior: priorCopy})
	c.mu.Unlock()

	events := make(chan Event, len(c.Fragments)+1)

	go func() {
		defer close(events)

		for _, fragment := range c.Fragments {
			if c.Delay > 0 {
				select {
				case <-time.After(c.Delay):
				case <-ctx.Done():
					events <- Event{Kind: EventError, Err: ctx.Err()}
					return
				}
			}
			select {
			case events <- Event{Kind: EventFragment, Text: fragment}:
			case <-ctx.Done():
				events <- Event{Kind: EventError, Err: ctx.Err()}
				return
			}
		}

		select {
		case <-ctx.Done():
			events <- Event{Kind: EventError, Err: ctx.Err()}
			return
		default:
		}

		if c.Fail != nil {
			events <- Event{Kind: EventError, Err: c.Fail}
			return
		}
		events <- Event{Kind: EventDone}
	}()

	return events, nil
}

// Calls returns the recorded invocations.
func (c *ScriptedClient) Calls() []ScriptedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := make([]ScriptedCall, len(c.calls))
	copy(calls, c.calls)
	return calls
}
