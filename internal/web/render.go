// ABOUTME: Markdown rendering for committed assistant messages
// ABOUTME: Non-assistant messages stay plain text on the client side

package web

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark"

	"github.com/brayanmnz/finassist/internal/chat"
)

// renderHTML converts a committed assistant message's markdown to HTML.
// Other roles render client-side as plain text, so this returns an empty
// string for them.
func renderHTML(msg *chat.Message, logger *slog.Logger) string {
	if msg.Role != chat.RoleAssistant {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(msg.Text), &buf); err != nil {
		logger.Error("failed to convert markdown", "message_id", msg.ID, "error", err)
		return ""
	}
	return buf.String()
}
