package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
)

// AppendMessage inserts a message and bumps the conversation timestamp in
// one transaction.
func (s *PGStore) AppendMessage(ctx context.Context, conversationID int64, role model.Role, content string) (*model.Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	msg := &model.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		conversationID, string(role), content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: append message: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		conversationID, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: bump conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}

	return msg, nil
}

// ListMessages returns all messages ordered by id ascending.
func (s *PGStore) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// RecentMessages returns up to limit messages ordered by id descending.
func (s *PGStore) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY id DESC LIMIT $2`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// LatestMessage returns the newest message of the conversation.
func (s *PGStore) LatestMessage(ctx context.Context, conversationID int64) (*model.Message, error) {
	var m model.Message
	err := s.db.QueryRow(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY id DESC LIMIT 1`,
		conversationID,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest message: %w", err)
	}
	return &m, nil
}

// HasAssistantAfter reports whether an assistant message with id greater
// than messageID exists in the conversation.
func (s *PGStore) HasAssistantAfter(ctx context.Context, conversationID, messageID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM messages
		   WHERE conversation_id = $1 AND id > $2 AND role = 'assistant'
		 )`,
		conversationID, messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: has assistant after: %w", err)
	}
	return exists, nil
}

func scanMessages(rows pgx.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read messages: %w", err)
	}
	return out, nil
}
