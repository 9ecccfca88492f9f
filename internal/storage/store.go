// Copyright (c) 2024-2025 Yawar Aquil
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/yawarquil/advance-ai-chatbot/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &StoreError{Message: "conversation not found"}

// StoreError represents a storage-related error. It implements the error
// interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store persists conversations, settings, and the current conversation
// buffer in one SQLite database.
type Store struct {
	db *sql.DB

	// mu serializes writes. SQLite handles a single writer; taking the
	// lock around each write transaction keeps saves for the same
	// conversation strictly ordered.
	mu sync.Mutex
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
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
	if _, err := db.Exec(initMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db}, nil
}

// NewDefaultStore opens the database in the application's data directory,
// ~/.aichat/chat.db.
func NewDefaultStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStore(filepath.Join(homeDir, ".aichat", "chat.db"))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SETTINGS
// =============================================================================

// LoadSettings reads the persisted settings, filling in defaults for any
// key that has never been saved.
func (s *Store) LoadSettings() (*model.Settings, error) {
	defaults := model.DefaultSettings()
	settings := &defaults

	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		switch key {
		case "provider":
			settings.Provider = value
		case "theme":
			settings.Theme = value
		case "send_on_enter":
			settings.SendOnEnter = value == "true"
		}
	}
	return settings, rows.Err()
}

// SaveSettings persists the settings, replacing any previous values.
func (s *Store) SaveSettings(settings *model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pairs := map[string]string{
		"provider":      settings.Provider,
		"theme":         settings.Theme,
		"send_on_enter": strconv.FormatBool(settings.SendOnEnter),
	}
	for key, value := range pairs {
		if _, err := tx.Exec(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// SaveConversation persists a conversation, replacing any previous version
// atomically: the old message rows are deleted and the current ones inserted
// inside one transaction.
func (s *Store) SaveConversation(conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO conversations (id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ID, conv.Title, conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages for %s: %w", conv.ID, err)
	}

	for seq, msg := range conv.Messages {
		attachments := ""
		if len(msg.Attachments) > 0 {
			data, err := json.Marshal(msg.Attachments)
			if err != nil {
				return fmt.Errorf("failed to encode attachments: %w", err)
			}
			attachments = string(data)
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (id, conversation_id, seq, role, text, timestamp, responder, attachments)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, seq, msg.Role.String(), msg.Text,
			msg.Timestamp.UnixNano(), msg.Responder, attachments,
		); err != nil {
			return fmt.Errorf("failed to save message %s: %w", msg.ID, err)
		}
	}
	return tx.Commit()
}

// LoadConversation retrieves a conversation by ID with all its messages.
func (s *Store) LoadConversation(id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	var created, updated int64
	err := s.db.QueryRow(
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)

	if conv.Messages, err = s.loadMessages(id); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Store) loadMessages(conversationID string) ([]*model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, text, timestamp, responder, attachments
		 FROM messages WHERE conversation_id = ? ORDER BY seq`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	messages := make([]*model.Message, 0)
	for rows.Next() {
		var (
			msg         model.Message
			role        string
			ts          int64
			attachments string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Text, &ts, &msg.Responder, &attachments); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, ts)
		if attachments != "" {
			if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("failed to decode attachments for message %s: %w", msg.ID, err)
			}
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// LoadConversations returns all conversations with their messages, most
// recently updated first.
func (s *Store) LoadConversations() ([]*model.Conversation, error) {
	rows, err := s.db.Query(`SELECT id FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	conversations := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.LoadConversation(id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// Search returns conversations whose title or any message text contains the
// query, case-insensitive, most recently updated first. An empty query
// returns everything.
func (s *Store) Search(query string) ([]*model.Conversation, error) {
	if query == "" {
		return s.LoadConversations()
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(
		`SELECT DISTINCT c.id FROM conversations c
		 LEFT JOIN messages m ON m.conversation_id = c.id
		 WHERE c.title LIKE ? ESCAPE '\' OR m.text LIKE ? ESCAPE '\'
		 ORDER BY c.updated_at DESC`,
		pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.LoadConversation(id)
		if err != nil {
			return nil, err
		}
		results = append(results, conv)
	}
	return results, nil
}

// escapeLike escapes LIKE wildcards so a query containing % or _ matches
// literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// =============================================================================
// CURRENT CONVERSATION BUFFER
// =============================================================================

// SaveCurrentConversation stores the in-progress conversation so it
// survives a restart even before it is saved to history.
func (s *Store) SaveCurrentConversation(conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode current conversation: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO current_conversation (slot, data) VALUES (0, ?)
		 ON CONFLICT(slot) DO UPDATE SET data = excluded.data`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save current conversation: %w", err)
	}
	return nil
}

// LoadCurrentConversation returns the buffered conversation, or nil when
// there is none.
func (s *Store) LoadCurrentConversation() (*model.Conversation, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM current_conversation WHERE slot = 0`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current conversation: %w", err)
	}

	var conv model.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, fmt.Errorf("failed to decode current conversation: %w", err)
	}
	return &conv, nil
}

// ClearCurrentConversation removes the buffered conversation, if any.
func (s *Store) ClearCurrentConversation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM current_conversation`)
	return err
}

// =============================================================================
// CLEAR ALL
// =============================================================================

// ClearAllData removes every conversation, the current buffer, and all
// settings in one transaction.
func (s *Store) ClearAllData() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM messages`,
		`DELETE FROM conversations`,
		`DELETE FROM current_conversation`,
		`DELETE FROM settings`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}
	return tx.Commit()
}
