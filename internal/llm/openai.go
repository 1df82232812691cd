// ABOUTME: StreamClient backed by an OpenAI-compatible endpoint via langchaingo
// ABOUTME: Works against OpenAI, Ollama and other compatible servers

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/brayanmnz/finassist/internal/chat"
)

// eventBufferSize is the channel buffer for fragment delivery. Fragment
// application never blocks the producer for chat-sized responses.
const eventBufferSize = 16

// OpenAIClient streams chat completions from an OpenAI-compatible API.
type OpenAIClient struct {
	model  llms.Model
	logger *slog.Logger
}

// NewOpenAIClient creates a streaming client. baseURL may point at any
// OpenAI-compatible server (e.g. a local Ollama instance).
func NewOpenAIClient(baseURL, token, model string, logger *slog.Logger) (*OpenAIClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	return &OpenAIClient{
		model:  llm,
		logger: logger.With("component", "llm"),
	}, nil
}

// StreamChat opens one streaming completion. Prior messages are replayed with
// their roles, followed by the prompt as the new user turn. Fragments are
// delivered in arrival order; the stream terminates with Done or Error and
// the channel is closed.
func (c *OpenAIClient) StreamChat(ctx context.Context, prompt string, prior []chat.ContextMessage) (<-chan Event, error) {
	content := make([]llms.MessageContent, 0, len(prior)+1)
	for _, m := range prior {
		content = append(content, llms.TextParts(contextRoleToMessageType(m.Role), m.Text))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	events := make(chan Event, eventBufferSize)

	go func() {
		defer close(events)

		_, err := c.model.GenerateContent(ctx, content,
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case events <- Event{Kind: EventFragment, Text: string(chunk)}:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			c.logger.Debug("stream failed", "error", err)
			events <- Event{Kind: EventError, Err: err}
			return
		}
		events <- Event{Kind: EventDone}
	}()

	return events, nil
}

func contextRoleToMessageType(role chat.ContextRole) llms.ChatMessageType {
	if role == chat.ContextRoleAssistant {
		return llms.ChatMessageTypeAI
	}
	return llms.ChatMessageTypeHuman
}
