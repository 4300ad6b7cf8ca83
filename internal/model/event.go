package model

import (
	"time"
)

// EventType represents the type of conversation event published for
// downstream consumers.
type EventType string

const (
	EventTypeMessageCreated EventType = "message_created"
	EventTypeStreamFailed   EventType = "stream_failed"
)

// ConversationEvent is a lightweight notification about conversation
// activity. Events carry ids, not content.
type ConversationEvent struct {
	Type           EventType `json:"type"`
	ConversationID int64     `json:"conversation_id"`
	MessageID      int64     `json:"message_id,omitempty"`
	Role           Role      `json:"role,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
