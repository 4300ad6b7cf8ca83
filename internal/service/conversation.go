// Package service implements the business logic between the HTTP handlers
// and the store: conversation and message management plus the streamed
// reply pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

// ErrForbidden is returned when a user accesses a conversation they do not
// own and they are not an admin.
var ErrForbidden = errors.New("service: not the conversation owner")

const (
	maxTitleLen  = 200
	defaultTitle = "Neue Unterhaltung"
)

// Caller identifies the authenticated requester.
type Caller struct {
	UserID string
	Admin  bool
}

// ConversationService handles conversation lifecycle operations.
type ConversationService struct {
	store store.Store
	log   *logger.Logger
}

func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{store: st, log: log}
}

// Create creates a conversation owned by the caller. Empty titles get a
// default; long titles are cut at the limit.
func (s *ConversationService) Create(ctx context.Context, caller Caller, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}

	conv, err := s.store.CreateConversation(ctx, caller.UserID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.log.Infow("conversation created", "conversation_id", conv.ID, "user_id", caller.UserID)
	metrics.ConversationsTotal.Inc()
	return conv, nil
}

// Get returns the conversation when the caller owns it or is an admin.
func (s *ConversationService) Get(ctx context.Context, caller Caller, id int64) (*model.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != caller.UserID && !caller.Admin {
		return nil, ErrForbidden
	}
	return conv, nil
}

// List returns the caller's conversations newest-activity first. Admins see
// every conversation.
func (s *ConversationService) List(ctx context.Context, caller Caller) ([]model.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, caller.UserID, caller.Admin)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// Rename changes the conversation title.
func (s *ConversationService) Rename(ctx context.Context, caller Caller, id int64, title string) (*model.Conversation, error) {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}

	if err := s.store.RenameConversation(ctx, id, title); err != nil {
		return nil, fmt.Errorf("failed to rename conversation: %w", err)
	}
	return s.store.GetConversation(ctx, id)
}

// Delete removes the conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, caller Caller, id int64) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.log.Infow("conversation deleted", "conversation_id", id, "user_id", caller.UserID)
	return nil
}
