// ABOUTME: SQLite transcript ledger using modernc.org/sqlite
// ABOUTME: Durable audit copy of committed messages; never consulted for model context

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brayanmnz/finassist/internal/chat"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("not found")

// recordTimeout bounds each background write so persistence continues even
// when the originating request context is long gone.
const recordTimeout = 5 * time.Second

// Entry is one committed message as stored in the transcript.
type Entry struct {
	ID             string
	ConversationID string
	Role           chat.Role
	Author         string
	Text           string
	CreatedAt      time.Time
}

// SQLiteLedger records committed conversation entries in a SQLite database.
// The in-memory ConversationStore stays authoritative for model context;
// the ledger exists for audit and transcript export.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the ledger at the given path. The schema is created
// automatically and parent directories are created if needed.
func Open(path string, logger *slog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ledger")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	l := &SQLiteLedger{db: db, logger: logger}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("transcript ledger initialized", "path", path)
	return l, nil
}

func (l *SQLiteLedger) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS transcript (
			entry_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			author TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcript_conversation
			ON transcript(conversation_id, created_at);
	`
	_, err := l.db.Exec(schema)
	return err
}

// SaveEntry persists one transcript entry.
func (l *SQLiteLedger) SaveEntry(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO transcript (entry_id, conversation_id, role, author, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		e.ID,
		e.ConversationID,
		string(e.Role),
		e.Author,
		e.Text,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting transcript entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a single entry by id.
func (l *SQLiteLedger) GetEntry(ctx context.Context, id string) (*Entry, error) {
	query := `
		SELECT entry_id, conversation_id, role, author, text, created_at
		FROM transcript
		WHERE entry_id = ?
	`
	e := &Entry{}
	var role, createdAt string
	err := l.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.ConversationID, &role, &e.Author, &e.Text, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying transcript entry: %w", err)
	}
	e.Role = chat.Role(role)
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	return e, nil
}

// ListByConversation returns up to limit entries for a conversation in
// chronological order. A non-positive limit defaults to 100.
func (l *SQLiteLedger) ListByConversation(ctx context.Context, conversationID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT entry_id, conversation_id, role, author, text, created_at
		FROM transcript
		WHERE conversation_id = ?
		ORDER BY created_at ASC, entry_id ASC
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying transcript: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var role, createdAt string
		if err := rows.Scan(&e.ID, &e.ConversationID, &role, &e.Author, &e.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transcript entry: %w", err)
		}
		e.Role = chat.Role(role)
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Record persists a committed message with its own timeout context. Failures
// are logged, not surfaced: the ledger is an audit copy and must never fail
// an exchange.
func (l *SQLiteLedger) Record(msg *chat.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := l.SaveEntry(ctx, &Entry{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Author:         msg.Author,
		Text:           msg.Text,
		CreatedAt:      msg.Timestamp,
	})
	if err != nil {
		l.logger.Error("failed to record transcript entry",
			"entry_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"error", err)
		return
	}
	l.logger.Debug("transcript entry recorded",
		"entry_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"role", msg.Role)
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
