package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/internal/middleware"
	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/orchestrator"
	"github.com/heimassist/assistant-platform/internal/planner"
	"github.com/heimassist/assistant-platform/internal/service"
	"github.com/heimassist/assistant-platform/internal/store/memory"
	"github.com/heimassist/assistant-platform/internal/tools"
	"github.com/heimassist/assistant-platform/pkg/logger"
)

// stubLLM answers the planner with respond and streams fixed tokens.
type stubLLM struct {
	tokens []string
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(context.Context, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: `{"action":"respond"}`}, nil
}

func (s *stubLLM) CompleteStream(_ context.Context, _ *llm.CompletionRequest, cb llm.StreamCallback) (*llm.CompletionResponse, error) {
	var acc strings.Builder
	for i, tok := range s.tokens {
		if err := cb(tok, i); err != nil {
			return nil, err
		}
		acc.WriteString(tok)
	}
	return &llm.CompletionResponse{Content: acc.String()}, nil
}

// asUser injects an authenticated identity the way the auth middleware does.
func asUser(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			ctx = context.WithValue(ctx, middleware.RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(st *memory.Store, client llm.Client, userID, role string) http.Handler {
	log := logger.NewNop()
	registry := tools.NewRegistry(tools.Config{}, log)

	conversationSvc := service.NewConversationService(st, log)
	messageSvc := service.NewMessageService(st, conversationSvc, nil, log)
	settingsSvc := service.NewSettingsService(st, log)
	replySvc := service.NewReplyService(
		st,
		conversationSvc,
		service.NewWindowBuilder(st, 30),
		planner.New(client, registry.Allowlist(), log),
		orchestrator.New(registry, log),
		client,
		nil,
		log,
	)

	conversations := NewConversationHandler(conversationSvc, log)
	messages := NewMessageHandler(messageSvc, log)
	settings := NewSettingsHandler(settingsSvc, log)
	stream := NewStreamHandler(replySvc, log)

	r := chi.NewRouter()
	r.Use(asUser(userID, role))
	r.Get("/settings", settings.Get)
	r.Put("/settings", settings.Update)
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", conversations.Create)
		r.Get("/", conversations.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", conversations.Get)
			r.Put("/", conversations.Rename)
			r.Delete("/", conversations.Delete)
			r.Get("/messages", messages.List)
			r.Post("/messages", messages.Create)
			r.Post("/reply", stream.Reply)
		})
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestConversationLifecycle(t *testing.T) {
	st := memory.New()
	h := newTestRouter(st, &stubLLM{}, "u1", "user")

	rec := doJSON(t, h, http.MethodPost, "/conversations", `{"title":"Urlaub"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var conv model.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if conv.Title != "Urlaub" || conv.ID == 0 {
		t.Errorf("conversation = %+v", conv)
	}

	rec = doJSON(t, h, http.MethodGet, "/conversations", "")
	var list model.ListConversationsResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if !list.OK || len(list.Conversations) != 1 {
		t.Errorf("list = %+v", list)
	}

	rec = doJSON(t, h, http.MethodPut, "/conversations/1", `{"title":"Sommerurlaub"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("rename status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodDelete, "/conversations/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/conversations/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestConversationAccessDenied(t *testing.T) {
	st := memory.New()
	owner := newTestRouter(st, &stubLLM{}, "u1", "user")
	intruder := newTestRouter(st, &stubLLM{}, "u2", "user")
	admin := newTestRouter(st, &stubLLM{}, "root", middleware.RoleAdmin)

	doJSON(t, owner, http.MethodPost, "/conversations", `{"title":"Privat"}`)

	if rec := doJSON(t, intruder, http.MethodGet, "/conversations/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("intruder status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, admin, http.MethodGet, "/conversations/1", ""); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestMessageEndpoints(t *testing.T) {
	st := memory.New()
	h := newTestRouter(st, &stubLLM{}, "u1", "user")

	doJSON(t, h, http.MethodPost, "/conversations", `{"title":"Chat"}`)

	rec := doJSON(t, h, http.MethodPost, "/conversations/1/messages", `{"role":"user","content":"Hallo"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create message status = %d: %s", rec.Code, rec.Body)
	}

	if rec := doJSON(t, h, http.MethodPost, "/conversations/1/messages", `{"role":"assistant","content":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("assistant role status = %d, want 400", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/conversations/1/messages", `{"content":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty content status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/conversations/1/messages", "")
	var list model.ListMessagesResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if !list.OK || len(list.Messages) != 1 || list.Messages[0].Content != "Hallo" {
		t.Errorf("messages = %+v", list)
	}
}

func TestReplyStreamsSSE(t *testing.T) {
	st := memory.New()
	h := newTestRouter(st, &stubLLM{tokens: []string{"Gu", "ten Tag"}}, "u1", "user")

	doJSON(t, h, http.MethodPost, "/conversations", `{"title":"Chat"}`)
	doJSON(t, h, http.MethodPost, "/conversations/1/messages", `{"content":"Hallo"}`)

	rec := doJSON(t, h, http.MethodPost, "/conversations/1/reply", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reply status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, frame := range []string{
		"event: meta\ndata: {\"ok\":true,\"message\":\"stream_started\"}",
		"event: token\ndata: {\"token\":\"Gu\"}",
		"event: token\ndata: {\"token\":\"ten Tag\"}",
		"event: done\n",
	} {
		if !strings.Contains(body, frame) {
			t.Errorf("body missing frame %q:\n%s", frame, body)
		}
	}

	// The reply is persisted.
	msgs, _ := st.ListMessages(context.Background(), 1)
	if len(msgs) != 2 || msgs[1].Content != "Guten Tag" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestReplyPreconditionErrors(t *testing.T) {
	st := memory.New()
	h := newTestRouter(st, &stubLLM{tokens: []string{"x"}}, "u1", "user")

	doJSON(t, h, http.MethodPost, "/conversations", `{"title":"Chat"}`)

	// No messages at all.
	if rec := doJSON(t, h, http.MethodPost, "/conversations/1/reply", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("empty conversation status = %d, want 400", rec.Code)
	}

	// Last message is already an assistant reply.
	st.AppendMessage(context.Background(), 1, model.RoleUser, "Hallo")
	st.AppendMessage(context.Background(), 1, model.RoleAssistant, "Hi")
	if rec := doJSON(t, h, http.MethodPost, "/conversations/1/reply", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("answered conversation status = %d, want 400", rec.Code)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	st := memory.New()
	h := newTestRouter(st, &stubLLM{}, "u1", "user")

	rec := doJSON(t, h, http.MethodGet, "/settings", "")
	var settings model.Settings
	json.Unmarshal(rec.Body.Bytes(), &settings)
	if settings.Timezone != "Europe/Berlin" {
		t.Errorf("default timezone = %q", settings.Timezone)
	}

	rec = doJSON(t, h, http.MethodPut, "/settings", `{"timezone":"Europe/Vienna","locale":"de-AT","units":"metric"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, h, http.MethodPut, "/settings", `{"timezone":"Nope/Nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid timezone status = %d, want 400", rec.Code)
	}
}
