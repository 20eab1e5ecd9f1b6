// Package chat implements the coaching conversation: message storage,
// per-profile model settings, context assembly, prompt construction and
// the call to the chat-completion API.
package chat

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"lifeone/internal/blueprint"
)

var (
	db       *sql.DB
	programs *blueprint.Store
)

// Init wires the package to the database and the program document store.
func Init(database *sql.DB, programStore *blueprint.Store) {
	db = database
	programs = programStore
}

// historyLimit is the number of prior exchanges (user+assistant pairs)
// replayed to the model on each request.
const historyLimit = 20

// Message is one stored chat turn.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// History returns up to limit of the most recent messages, oldest first.
func History(ctx context.Context, profileID string, limit int) ([]Message, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM (
			SELECT rowid AS rid, id, role, content, created_at FROM chat_messages
			WHERE profile_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
		 ) ORDER BY created_at, rid`,
		profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chat history: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// saveExchange persists the user turn then the assistant turn in one
// transaction and returns the assistant message.
func saveExchange(ctx context.Context, profileID, userText, assistantText string) (*Message, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, profile_id, role, content) VALUES (?, ?, 'user', ?)`,
		uuid.New().String(), profileID, userText); err != nil {
		return nil, fmt.Errorf("inserting user message: %w", err)
	}

	assistant := Message{ID: uuid.New().String(), Role: "assistant", Content: assistantText}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO chat_messages (id, profile_id, role, content) VALUES (?, ?, 'assistant', ?)
		 RETURNING created_at`,
		assistant.ID, profileID, assistantText).Scan(&assistant.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting assistant message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chat exchange: %w", err)
	}
	return &assistant, nil
}
