// ABOUTME: Tests for the SQLite transcript ledger
// ABOUTME: Verifies schema creation, round-trips, ordering and Record logging behavior

package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brayanmnz/finassist/internal/chat"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "transcript.db")
	l, err := Open(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_SaveAndGetEntry(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	entry := &Entry{
		ID:             "e-1",
		ConversationID: "general",
		Role:           chat.RoleHuman,
		Author:         "you",
		Text:           "Hello",
		CreatedAt:      time.Now(),
	}
	require.NoError(t, l.SaveEntry(ctx, entry))

	got, err := l.GetEntry(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, "general", got.ConversationID)
	assert.Equal(t, chat.RoleHuman, got.Role)
	assert.Equal(t, "Hello", got.Text)
}

func TestLedger_GetEntryNotFound(t *testing.T) {
	l := openTestLedger(t)

	_, err := l.GetEntry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_ListByConversationOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, text := range []string{"one", "two", "three"} {
		require.NoError(t, l.SaveEntry(ctx, &Entry{
			ID:             text,
			ConversationID: "general",
			Role:           chat.RoleHuman,
			Author:         "you",
			Text:           text,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, l.SaveEntry(ctx, &Entry{
		ID:             "other",
		ConversationID: "savings",
		Role:           chat.RoleHuman,
		Author:         "you",
		Text:           "elsewhere",
		CreatedAt:      base,
	}))

	entries, err := l.ListByConversation(ctx, "general", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "one", entries[0].Text)
	assert.Equal(t, "two", entries[1].Text)
	assert.Equal(t, "three", entries[2].Text)
}

func TestLedger_ListLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.SaveEntry(ctx, &Entry{
			ID:             string(rune('a' + i)),
			ConversationID: "general",
			Role:           chat.RoleAssistant,
			Author:         "AI Assistant",
			Text:           "t",
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := l.ListByConversation(ctx, "general", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLedger_RecordCommittedMessage(t *testing.T) {
	l := openTestLedger(t)

	msg := chat.NewMessage("general", chat.RoleAssistant, "AI Assistant", "Hi there")
	l.Record(msg)

	got, err := l.GetEntry(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.RoleAssistant, got.Role)
	assert.Equal(t, "Hi there", got.Text)
}

func TestLedger_RecordDuplicateIsLoggedNotFatal(t *testing.T) {
	l := openTestLedger(t)

	msg := chat.NewMessage("general", chat.RoleHuman, "you", "once")
	l.Record(msg)
	// Second Record with the same id violates the primary key; it must only log.
	l.Record(msg)

	entries, err := l.ListByConversation(context.Background(), "general", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
