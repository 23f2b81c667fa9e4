// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/morganforge/tllm/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned for lookups on an unknown id.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a store-level conversation error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store is the durable conversation log.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	provider        TEXT NOT NULL DEFAULT '',
	truncated       INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL,
	UNIQUE (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated
	ON conversations(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);
`

// Open opens (or creates) the store at the given database path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time; limit the pool accordingly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CREATE
// =============================================================================

// Create allocates a new conversation, optionally seeded with a system
// message, and returns its id.
func (s *Store) Create(systemPrompt string) (string, error) {
	conv := model.NewConversationWithSystemPrompt(systemPrompt)

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}

	for i, msg := range conv.Messages {
		if err := insertMessage(tx, conv.ID, i, msg); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return conv.ID, nil
}

// =============================================================================
// APPEND
// =============================================================================

// Append adds a message to a conversation. The message insert and the
// conversation's updated_at bump commit in one transaction.
func (s *Store) Append(id string, msg *model.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("lookup conversation: %w", err)
	}
	if exists == 0 {
		return ErrConversationNotFound
	}

	var seq int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(seq)+1, 0) FROM messages WHERE conversation_id = ?`, id,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	if err := insertMessage(tx, id, seq, msg); err != nil {
		return err
	}

	if _, err := tx.Exec(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.Timestamp, id,
	); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	return tx.Commit()
}

// insertMessage writes one message row inside a transaction.
func insertMessage(tx *sql.Tx, convID string, seq int, msg *model.Message) error {
	_, err := tx.Exec(
		`INSERT INTO messages (id, conversation_id, seq, role, content, provider, truncated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, convID, seq, msg.Role.String(), msg.Content, msg.Provider, boolToInt(msg.Truncated), msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// =============================================================================
// LOOKUP
// =============================================================================

// Get returns the full conversation with its ordered message sequence.
func (s *Store) Get(id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := s.db.QueryRow(
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	messages, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return conv, nil
}

// loadMessages returns a conversation's messages in append order.
func (s *Store) loadMessages(convID string) ([]*model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, provider, truncated, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY seq`, convID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.Message, 0)
	for rows.Next() {
		msg := &model.Message{}
		var role string
		var truncated int
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Provider, &truncated, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Truncated = truncated != 0
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// =============================================================================
// LISTING
// =============================================================================

// ListEntry is one row of the recency listing.
type ListEntry struct {
	ID           string
	Title        string
	MessageCount int
	UpdatedAt    time.Time
}

// ListRecent returns conversations ordered most-recently-updated first.
// The head of this sequence is the "load last" target.
func (s *Store) ListRecent() ([]ListEntry, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.title, c.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		 FROM conversations c
		 ORDER BY c.updated_at DESC, c.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	entries := make([]ListEntry, 0)
	for rows.Next() {
		var e ListEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.UpdatedAt, &e.MessageCount); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MostRecent returns the id of the most recently updated conversation.
func (s *Store) MostRecent() (string, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM conversations ORDER BY updated_at DESC, id LIMIT 1`,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrConversationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query most recent: %w", err)
	}
	return id, nil
}

// =============================================================================
// TITLE
// =============================================================================

// SetTitle updates a conversation's title without touching updated_at, so
// naming a conversation does not change its recency position.
func (s *Store) SetTitle(id, title string) error {
	res, err := s.db.Exec(`UPDATE conversations SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportAll materializes each stored conversation in turn and hands it to
// fn, oldest first. Iteration stops on the first error from fn.
func (s *Store) ExportAll(fn func(*model.Conversation) error) error {
	rows, err := s.db.Query(`SELECT id FROM conversations ORDER BY created_at, id`)
	if err != nil {
		return fmt.Errorf("query conversations: %w", err)
	}

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range ids {
		conv, err := s.Get(id)
		if err != nil {
			return err
		}
		if err := fn(conv); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
