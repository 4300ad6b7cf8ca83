// Package events publishes conversation activity notifications over NATS
// for downstream consumers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/pkg/logger"
)

const subjectPrefix = "assistant.conversations"

// Publisher emits conversation events. A nil Publisher is valid and drops
// everything, so callers never need to branch on whether NATS is configured.
type Publisher struct {
	conn *nats.Conn
	log  *logger.Logger
}

// Connect dials NATS and returns a publisher. An empty URL yields a nil
// publisher without error.
func Connect(url, token string, log *logger.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	opts := []nats.Option{
		nats.Name("assistant-platform"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infow("connected to NATS", "url", url)
	return &Publisher{conn: conn, log: log}, nil
}

// MessageCreated publishes a message_created event.
func (p *Publisher) MessageCreated(conversationID, messageID int64, role model.Role) {
	p.publish(model.ConversationEvent{
		Type:           model.EventTypeMessageCreated,
		ConversationID: conversationID,
		MessageID:      messageID,
		Role:           role,
		CreatedAt:      time.Now(),
	})
}

// StreamFailed publishes a stream_failed event.
func (p *Publisher) StreamFailed(conversationID int64, reason string) {
	p.publish(model.ConversationEvent{
		Type:           model.EventTypeStreamFailed,
		ConversationID: conversationID,
		Reason:         reason,
		CreatedAt:      time.Now(),
	})
}

// publish is fire and forget: event delivery never blocks or fails a reply.
func (p *Publisher) publish(event model.ConversationEvent) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Errorw("event not serializable", "type", event.Type, "error", err)
		return
	}

	subject := fmt.Sprintf("%s.%d.%s", subjectPrefix, event.ConversationID, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warnw("event publish failed", "subject", subject, "error", err)
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
