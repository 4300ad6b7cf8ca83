package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/heimassist/assistant-platform/internal/events"
	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/orchestrator"
	"github.com/heimassist/assistant-platform/internal/planner"
	"github.com/heimassist/assistant-platform/internal/store"
	"github.com/heimassist/assistant-platform/internal/tools"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

// Precondition errors. All of them are rejected before any stream event is
// emitted and cause no side effects.
var (
	// ErrNoPendingUserMessage means the conversation's newest message is
	// not a user message, so there is nothing to answer.
	ErrNoPendingUserMessage = errors.New("service: no pending user message")
	// ErrDuplicateReply means the pending user message already has an
	// assistant reply, or one is being generated right now.
	ErrDuplicateReply = errors.New("service: reply already exists for this message")
)

// Stream event names on the wire.
const (
	EventMeta  = "meta"
	EventToken = "token"
	EventPing  = "ping"
	EventDone  = "done"
	EventError = "error"
)

// keepaliveInterval is how long the stream may go without a token before a
// ping is emitted.
const keepaliveInterval = 10 * time.Second

// emptyReplyPlaceholder is persisted and shown when the model produced no
// usable output.
const emptyReplyPlaceholder = "(Keine Antwort erhalten)"

// EventSink receives ordered stream events. The SSE handler implements it;
// tests use an in-memory recorder. Implementations do not need to be
// goroutine safe, the engine serializes all calls.
type EventSink interface {
	Send(event string, data any) error
}

// MetaPayload announces a started stream.
type MetaPayload struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// TokenPayload carries one ordered reply fragment.
type TokenPayload struct {
	Token string `json:"token"`
}

// DonePayload terminates a successful stream.
type DonePayload struct {
	OK                 bool  `json:"ok"`
	AssistantMessageID int64 `json:"assistant_message_id"`
}

// ErrorPayload terminates a failed stream.
type ErrorPayload struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// ReplyService runs the full reply pipeline for one conversation: context
// window, planner, optional tool, token streaming, persistence.
type ReplyService struct {
	store         store.Store
	conversations *ConversationService
	window        *WindowBuilder
	planner       *planner.Planner
	orchestrator  *orchestrator.Orchestrator
	client        llm.Client
	events        *events.Publisher
	guard         *replyGuard
	log           *logger.Logger
}

func NewReplyService(
	st store.Store,
	conversations *ConversationService,
	window *WindowBuilder,
	pl *planner.Planner,
	orch *orchestrator.Orchestrator,
	client llm.Client,
	pub *events.Publisher,
	log *logger.Logger,
) *ReplyService {
	return &ReplyService{
		store:         st,
		conversations: conversations,
		window:        window,
		planner:       pl,
		orchestrator:  orch,
		client:        client,
		events:        pub,
		guard:         newReplyGuard(),
		log:           log,
	}
}

// Stream generates one assistant reply and emits it through sink. All
// precondition errors are returned before the first event; once the meta
// event is out, failures are reported on the stream instead.
func (s *ReplyService) Stream(ctx context.Context, caller Caller, conversationID int64, sink EventSink) error {
	if _, err := s.conversations.Get(ctx, caller, conversationID); err != nil {
		return err
	}

	if !s.guard.acquire(conversationID) {
		return ErrDuplicateReply
	}
	defer s.guard.release(conversationID)

	last, err := s.store.LatestMessage(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrEmptyContext
		}
		return fmt.Errorf("failed to load latest message: %w", err)
	}
	if last.Role != model.RoleUser {
		return ErrNoPendingUserMessage
	}

	replied, err := s.store.HasAssistantAfter(ctx, conversationID, last.ID)
	if err != nil {
		return fmt.Errorf("failed to check for existing reply: %w", err)
	}
	if replied {
		return ErrDuplicateReply
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	window, err := s.window.Build(ctx, conversationID, settings)
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("reply").Start(ctx, "reply.stream",
		trace.WithAttributes(attribute.Int64("conversation.id", conversationID)))
	defer span.End()

	return s.run(ctx, caller, conversationID, settings, window, sink, span)
}

// run owns the stream after preconditions passed. It never returns
// precondition errors; everything from here on is reported through sink.
func (s *ReplyService) run(
	ctx context.Context,
	caller Caller,
	conversationID int64,
	settings model.Settings,
	window []llm.ChatMessage,
	sink EventSink,
	span trace.Span,
) error {
	emitter := newEmitter(sink)
	if err := emitter.send(EventMeta, MetaPayload{OK: true, Message: "stream_started"}); err != nil {
		return nil
	}

	stopKeepalive := emitter.keepalive(ctx, keepaliveInterval)
	defer stopKeepalive()

	decision := s.planner.Plan(ctx, window)
	span.SetAttributes(attribute.String("planner.action", string(decision.Action)))

	outcome := s.orchestrator.Execute(ctx, decision, tools.Context{
		Store:    s.store,
		UserID:   caller.UserID,
		Settings: settings,
	})
	prompt := s.orchestrator.Augment(window, outcome)

	start := time.Now()
	var acc strings.Builder
	tokens := 0

	_, streamErr := s.client.CompleteStream(ctx, &llm.CompletionRequest{
		Messages:  prompt,
		MaxTokens: 4096,
	}, func(token string, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		acc.WriteString(token)
		tokens++
		return emitter.send(EventToken, TokenPayload{Token: token})
	})

	provider := s.client.Name()
	duration := time.Since(start).Seconds()

	if streamErr != nil {
		if ctx.Err() != nil || errors.Is(streamErr, context.Canceled) {
			// Client gone: keep what was already generated, say nothing on
			// the dead transport.
			s.persistPartial(conversationID, acc.String())
			metrics.RecordStream(provider, "canceled", duration, tokens)
			return nil
		}

		s.log.Errorw("reply stream failed",
			"conversation_id", conversationID, "provider", provider, "error", streamErr)
		emitter.send(EventError, ErrorPayload{OK: false, Detail: "Antwort konnte nicht generiert werden."})
		emitter.close()
		s.events.StreamFailed(conversationID, streamErr.Error())
		metrics.RecordStream(provider, "error", duration, tokens)
		return nil
	}

	text := strings.TrimSpace(acc.String())
	if text == "" {
		text = emptyReplyPlaceholder
		if err := emitter.send(EventToken, TokenPayload{Token: text}); err != nil {
			s.persistPartial(conversationID, text)
			metrics.RecordStream(provider, "canceled", duration, tokens)
			return nil
		}
	}

	if appendix := sourceAppendix(outcome, text); appendix != "" {
		if err := emitter.send(EventToken, TokenPayload{Token: appendix}); err != nil {
			s.persistPartial(conversationID, text+appendix)
			metrics.RecordStream(provider, "canceled", duration, tokens)
			return nil
		}
		text += appendix
	}

	msg, err := s.store.AppendMessage(ctx, conversationID, model.RoleAssistant, text)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// Client disconnected between the last token and the persist;
			// the fully generated reply still has to survive.
			s.persistPartial(conversationID, text)
			metrics.RecordStream(provider, "canceled", duration, tokens)
			return nil
		}
		s.log.Errorw("failed to persist assistant message",
			"conversation_id", conversationID, "error", err)
		emitter.send(EventError, ErrorPayload{OK: false, Detail: "Antwort konnte nicht gespeichert werden."})
		emitter.close()
		metrics.RecordStream(provider, "error", duration, tokens)
		return nil
	}

	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	metrics.RecordStream(provider, "success", duration, tokens)
	s.events.MessageCreated(conversationID, msg.ID, model.RoleAssistant)

	emitter.send(EventDone, DonePayload{OK: true, AssistantMessageID: msg.ID})
	emitter.close()
	return nil
}

// persistPartial writes an interrupted reply with a fresh context; the
// request context is already canceled at that point.
func (s *ReplyService) persistPartial(conversationID int64, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := s.store.AppendMessage(ctx, conversationID, model.RoleAssistant, content)
	if err != nil {
		s.log.Errorw("failed to persist partial reply",
			"conversation_id", conversationID, "error", err)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()
	s.events.MessageCreated(conversationID, msg.ID, model.RoleAssistant)
	s.log.Infow("partial reply persisted",
		"conversation_id", conversationID, "message_id", msg.ID, "bytes", len(content))
}

// sourceAppendix builds the trailing source list when a search tool ran but
// the generated text cites nothing.
func sourceAppendix(outcome *tools.Outcome, text string) string {
	if outcome == nil || !outcome.OK || !tools.IsSearchTool(outcome.Tool) {
		return ""
	}
	if strings.Contains(text, "http") || strings.Contains(text, "Quellen") {
		return ""
	}

	entries := outcome.SourceEntries(5)
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nQuellen:\n")
	for _, entry := range entries {
		title, url := entry[0], entry[1]
		if title == "" {
			title = url
		}
		b.WriteString("- " + title)
		if url != "" {
			b.WriteString(" — " + url)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// emitter serializes sink access between the request flow and the
// keepalive timer, and tracks when the last token went out.
type emitter struct {
	mu        sync.Mutex
	sink      EventSink
	lastToken time.Time
	dead      bool
}

func newEmitter(sink EventSink) *emitter {
	return &emitter{sink: sink, lastToken: time.Now()}
}

func (e *emitter) send(event string, data any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return errSinkClosed
	}
	if err := e.sink.Send(event, data); err != nil {
		e.dead = true
		return err
	}
	if event == EventToken {
		e.lastToken = time.Now()
	}
	return nil
}

var errSinkClosed = errors.New("service: event sink closed")

// close stops any further emission, including keepalive pings racing with a
// terminal event.
func (e *emitter) close() {
	e.mu.Lock()
	e.dead = true
	e.mu.Unlock()
}

// keepalive pings the sink whenever no token has been emitted for the given
// interval. The returned stop function must be called before the terminal
// event.
func (e *emitter) keepalive(ctx context.Context, interval time.Duration) func() {
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.mu.Lock()
				idle := time.Since(e.lastToken)
				if idle >= interval && !e.dead {
					if err := e.sink.Send(EventPing, "keepalive"); err != nil {
						e.dead = true
					}
					e.lastToken = time.Now()
				}
				e.mu.Unlock()
			}
		}
	}()
	return stop
}
