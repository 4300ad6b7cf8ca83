// Package store defines the persistence contract for conversations,
// messages and settings.
package store

import (
	"context"
	"errors"

	"github.com/heimassist/assistant-platform/internal/model"
)

var (
	// ErrNotFound is returned when a conversation or message does not exist.
	ErrNotFound = errors.New("store: not found")
)

// Store is the contract for persisting conversations and messages.
// Message ids are assigned by the store and increase monotonically within a
// conversation; AppendMessage bumps the conversation's updated_at to the new
// message's timestamp in the same commit.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id int64) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string, includeAll bool) ([]model.Conversation, error)
	RenameConversation(ctx context.Context, id int64, title string) error
	DeleteConversation(ctx context.Context, id int64) error

	// Messages
	AppendMessage(ctx context.Context, conversationID int64, role model.Role, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error)
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
	LatestMessage(ctx context.Context, conversationID int64) (*model.Message, error)
	HasAssistantAfter(ctx context.Context, conversationID, messageID int64) (bool, error)

	// Settings
	Settings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) error
}
