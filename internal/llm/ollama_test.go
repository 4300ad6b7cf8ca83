package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"message":{"content":"{\"action\":\"respond\"}"},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1:8b")
	resp, err := client.Complete(context.Background(), &CompletionRequest{
		Messages:    []ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens:   256,
		Temperature: Temp(0),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != `{"action":"respond"}` {
		t.Errorf("content = %q", resp.Content)
	}
	if got.Model != "llama3.1:8b" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if got.Options.Temperature == nil || *got.Options.Temperature != 0 {
		t.Errorf("temperature = %v, want explicit 0", got.Options.Temperature)
	}
	if got.Options.NumCtx != 8192 {
		t.Errorf("num_ctx = %d, want 8192 for non-streaming", got.Options.NumCtx)
	}
}

func TestOllamaCompleteStream(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprintln(w, `{"message":{"content":"Hal"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"lo"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":""},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "llama3.1:8b")

	var tokens []string
	resp, err := client.CompleteStream(context.Background(), &CompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, func(token string, index int) error {
		tokens = append(tokens, token)
		if index != len(tokens)-1 {
			t.Errorf("index = %d at token %d", index, len(tokens)-1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}

	if strings.Join(tokens, "") != "Hallo" || resp.Content != "Hallo" {
		t.Errorf("tokens = %v, content = %q", tokens, resp.Content)
	}
	if !got.Stream || got.Options.NumCtx != 4096 {
		t.Errorf("request = %+v", got)
	}
}

func TestOllamaCompleteStreamCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"a"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"content":"b"},"done":true}`)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "m")
	sentinel := errors.New("client gone")

	_, err := client.CompleteStream(context.Background(), &CompletionRequest{}, func(string, int) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want callback error propagated", err)
	}
}

func TestOllamaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL, "m")
	_, err := client.Complete(context.Background(), &CompletionRequest{})
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("err = %v, want HTTP 404", err)
	}
}
