// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
)

// Store keeps everything in maps guarded by one mutex. Message ids increase
// monotonically across the whole store, which satisfies the per-conversation
// ordering contract.
type Store struct {
	mu            sync.RWMutex
	conversations map[int64]*model.Conversation
	messages      map[int64][]model.Message
	settings      model.Settings
	nextConvID    int64
	nextMsgID     int64
}

// New creates an empty in-memory store with default settings.
func New() *Store {
	return &Store{
		conversations: make(map[int64]*model.Conversation),
		messages:      make(map[int64][]model.Message),
		settings:      model.DefaultSettings(),
		nextConvID:    1,
		nextMsgID:     1,
	}
}

// CreateConversation creates a new conversation.
func (s *Store) CreateConversation(_ context.Context, userID, title string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:        s.nextConvID,
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextConvID++
	s.conversations[conv.ID] = conv

	c := *conv
	return &c, nil
}

// GetConversation retrieves a conversation by id.
func (s *Store) GetConversation(_ context.Context, id int64) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *conv
	return &c, nil
}

// ListConversations lists conversations newest-activity first. With
// includeAll set, conversations of all users are returned.
func (s *Store) ListConversations(_ context.Context, userID string, includeAll bool) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if includeAll || conv.UserID == userID {
			out = append(out, *conv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// RenameConversation sets a new title.
func (s *Store) RenameConversation(_ context.Context, id int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return store.ErrNotFound
	}
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

// AppendMessage appends a message and bumps the conversation timestamp.
func (s *Store) AppendMessage(_ context.Context, conversationID int64, role model.Role, content string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, store.ErrNotFound
	}

	msg := model.Message{
		ID:             s.nextMsgID,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	s.nextMsgID++
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	conv.UpdatedAt = msg.CreatedAt

	m := msg
	return &m, nil
}

// ListMessages returns all messages in chronological order.
func (s *Store) ListMessages(_ context.Context, conversationID int64) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	msgs := s.messages[conversationID]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *Store) RecentMessages(_ context.Context, conversationID int64, limit int) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	msgs := s.messages[conversationID]

	out := make([]model.Message, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, msgs[i])
	}
	return out, nil
}

// LatestMessage returns the newest message, or ErrNotFound when the
// conversation is empty.
func (s *Store) LatestMessage(_ context.Context, conversationID int64) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return nil, store.ErrNotFound
	}
	msgs := s.messages[conversationID]
	if len(msgs) == 0 {
		return nil, store.ErrNotFound
	}
	m := msgs[len(msgs)-1]
	return &m, nil
}

// HasAssistantAfter reports whether an assistant message with a higher id
// exists.
func (s *Store) HasAssistantAfter(_ context.Context, conversationID, messageID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[conversationID] {
		if m.ID > messageID && m.Role == model.RoleAssistant {
			return true, nil
		}
	}
	return false, nil
}

// Settings returns the current settings snapshot.
func (s *Store) Settings(_ context.Context) (model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// UpdateSettings replaces the settings snapshot.
func (s *Store) UpdateSettings(_ context.Context, set model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = set
	return nil
}

// Ensure Store implements store.Store at compile time.
var _ store.Store = (*Store)(nil)
