package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
)

var (
	// ErrEmptyContext is returned when the conversation has no messages.
	ErrEmptyContext = errors.New("service: conversation has no messages")
	// ErrInvalidTail is returned when the newest message is not a user
	// message; there is nothing to reply to.
	ErrInvalidTail = errors.New("service: last message is not a user message")
)

// defaultContextWindow bounds how many trailing messages feed the prompt.
const defaultContextWindow = 30

// WindowBuilder assembles the prompt window for one reply: a synthesized
// system preamble followed by the trailing conversation messages in
// chronological order.
type WindowBuilder struct {
	store store.Store
	limit int
	now   func() time.Time
}

func NewWindowBuilder(st store.Store, limit int) *WindowBuilder {
	if limit <= 0 {
		limit = defaultContextWindow
	}
	return &WindowBuilder{store: st, limit: limit, now: time.Now}
}

// Build loads the trailing window and validates that a user message is
// pending at the tail.
func (b *WindowBuilder) Build(ctx context.Context, conversationID int64, settings model.Settings) ([]llm.ChatMessage, error) {
	recent, err := b.store.RecentMessages(ctx, conversationID, b.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}
	if len(recent) == 0 {
		return nil, ErrEmptyContext
	}

	// RecentMessages returns newest first.
	if recent[0].Role != model.RoleUser {
		return nil, ErrInvalidTail
	}

	window := make([]llm.ChatMessage, 0, len(recent)+1)
	window = append(window, llm.ChatMessage{Role: "system", Content: b.preamble(settings)})
	for i := len(recent) - 1; i >= 0; i-- {
		window = append(window, llm.ChatMessage{
			Role:    string(recent[i].Role),
			Content: recent[i].Content,
		})
	}
	return window, nil
}

// preamble synthesizes the leading system message with the current local
// time and the configured default location.
func (b *WindowBuilder) preamble(settings model.Settings) string {
	tzName := settings.Timezone
	if tzName == "" {
		tzName = "Europe/Berlin"
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc = time.UTC
		tzName = "UTC"
	}
	now := b.now().In(loc)

	text := "Du bist ein hilfreicher, privater AI Assistant. Antworte knapp, " +
		"korrekt und auf Deutsch, sofern der Nutzer nicht in einer anderen " +
		"Sprache schreibt.\n" +
		fmt.Sprintf("Aktuelle lokale Zeit: %s (%s).",
			now.Format("Monday, 02. January 2006 15:04"), tzName)

	if settings.DefaultLocationName != "" {
		text += fmt.Sprintf("\nStandard-Ort des Nutzers: %s.", settings.DefaultLocationName)
	}
	return text
}
