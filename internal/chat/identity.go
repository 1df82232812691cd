// ABOUTME: Display identities for the assistant and the system-error author
// ABOUTME: Loaded once at startup and read-only afterwards

package chat

import "github.com/google/uuid"

// Identity names the author shown next to a chat entry.
type Identity struct {
	ID   string
	Name string
}

// Identities holds the process-wide author identities. They are initialized
// once at startup (from configuration or defaults) and never mutated.
type Identities struct {
	Assistant   Identity
	SystemError Identity
}

// DefaultIdentities returns the identities used when no identity file is
// configured.
func DefaultIdentities() Identities {
	return Identities{
		Assistant:   Identity{ID: uuid.New().String(), Name: "AI Assistant"},
		SystemError: Identity{ID: uuid.New().String(), Name: "System Error"},
	}
}
