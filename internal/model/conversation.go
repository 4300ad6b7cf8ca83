// Package model defines data structures shared across the platform.
package model

import (
	"time"
)

// Conversation represents a conversation thread owned by one user.
// UpdatedAt is bumped on every message append.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// RenameConversationRequest is the request to rename a conversation.
type RenameConversationRequest struct {
	Title string `json:"title"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	OK            bool           `json:"ok"`
	Conversations []Conversation `json:"conversations"`
}
