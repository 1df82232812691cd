// ABOUTME: Builds the role-tagged context replayed to the model on a new turn
// ABOUTME: Only committed human/assistant messages qualify; system-error entries never do

package chat

// ContextRole is the wire role a message carries when replayed to the model.
type ContextRole string

const (
	ContextRoleUser      ContextRole = "user"
	ContextRoleAssistant ContextRole = "assistant"
)

// ContextMessage is one role-tagged entry of model context.
type ContextMessage struct {
	Role ContextRole
	Text string
}

// ModelContext converts a history snapshot into the ordered role-tagged
// entries sent to the model. Human messages map to the user role, assistant
// messages to the assistant role; provisional and system-error messages are
// excluded.
func ModelContext(history []*Message) []ContextMessage {
	ctx := make([]ContextMessage, 0, len(history))
	for _, msg := range history {
		if !msg.InModelContext() {
			continue
		}
		role := ContextRoleAssistant
		if msg.Role == RoleHuman {
			role = ContextRoleUser
		}
		ctx = append(ctx, ContextMessage{Role: role, Text: msg.Text})
	}
	return ctx
}
