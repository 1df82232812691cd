// ABOUTME: Loads the optional TOML identity file naming chat authors
// ABOUTME: Identities are process-wide and read-only after startup

package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/brayanmnz/finassist/internal/chat"
)

// identityFile mirrors the TOML identity document:
//
//	[assistant]
//	name = "AI Assistant"
//
//	[system_error]
//	name = "System Error"
type identityFile struct {
	Assistant   identitySection `toml:"assistant"`
	SystemError identitySection `toml:"system_error"`
}

type identitySection struct {
	Name string `toml:"name"`
}

// LoadIdentities reads the identity file at path. An empty path returns the
// defaults; a missing name inside the file falls back to its default too.
func LoadIdentities(path string) (chat.Identities, error) {
	ids := chat.DefaultIdentities()
	if path == "" {
		return ids, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ids, fmt.Errorf("reading identity file: %w", err)
	}

	var file identityFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return ids, fmt.Errorf("parsing identity file: %w", err)
	}

	if file.Assistant.Name != "" {
		ids.Assistant = chat.Identity{ID: uuid.New().String(), Name: file.Assistant.Name}
	}
	if file.SystemError.Name != "" {
		ids.SystemError = chat.Identity{ID: uuid.New().String(), Name: file.SystemError.Name}
	}
	return ids, nil
}
