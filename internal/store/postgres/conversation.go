package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
)

// CreateConversation creates a new conversation for the user.
func (s *PGStore) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	conv := &model.Conversation{UserID: userID, Title: title}

	err := s.db.QueryRow(ctx,
		`INSERT INTO conversations (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		userID, title,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}

	return conv, nil
}

// GetConversation retrieves a conversation by id.
func (s *PGStore) GetConversation(ctx context.Context, id int64) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}

	err := s.db.QueryRow(ctx,
		`SELECT user_id, title, created_at, updated_at
		 FROM conversations WHERE id = $1`,
		id,
	).Scan(&conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}

	return conv, nil
}

// ListConversations lists conversations newest-activity first.
func (s *PGStore) ListConversations(ctx context.Context, userID string, includeAll bool) ([]model.Conversation, error) {
	query := `SELECT id, user_id, title, created_at, updated_at
	          FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC`
	args := []any{userID}
	if includeAll {
		query = `SELECT id, user_id, title, created_at, updated_at
		         FROM conversations ORDER BY updated_at DESC`
		args = nil
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}

	return out, nil
}

// RenameConversation sets a new title.
func (s *PGStore) RenameConversation(ctx context.Context, id int64, title string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE conversations SET title = $2, updated_at = NOW() WHERE id = $1`,
		id, title,
	)
	if err != nil {
		return fmt.Errorf("store: rename conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation; messages cascade.
func (s *PGStore) DeleteConversation(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
