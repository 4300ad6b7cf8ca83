package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/heimassist/assistant-platform/internal/events"
	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

const maxMessageLen = 20000

// MessageService handles listing and appending conversation messages.
type MessageService struct {
	store         store.Store
	conversations *ConversationService
	events        *events.Publisher
	log           *logger.Logger
}

func NewMessageService(st store.Store, conversations *ConversationService, pub *events.Publisher, log *logger.Logger) *MessageService {
	return &MessageService{store: st, conversations: conversations, events: pub, log: log}
}

// List returns all messages of a conversation in chronological order.
func (s *MessageService) List(ctx context.Context, caller Caller, conversationID int64) ([]model.Message, error) {
	if _, err := s.conversations.Get(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// CreateUserMessage appends a user message. Only the user role may be
// appended through the API; assistant messages are written by the reply
// engine alone.
func (s *MessageService) CreateUserMessage(ctx context.Context, caller Caller, conversationID int64, content string) (*model.Message, error) {
	if _, err := s.conversations.Get(ctx, caller, conversationID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty")
	}
	if len(content) > maxMessageLen {
		return nil, fmt.Errorf("content exceeds %d bytes", maxMessageLen)
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("content is not valid UTF-8")
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, model.RoleUser, content)
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()
	s.events.MessageCreated(conversationID, msg.ID, model.RoleUser)
	return msg, nil
}
