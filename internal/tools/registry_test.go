package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/pkg/logger"
)

type stubHandler struct {
	name   string
	result map[string]any
	err    error
	panics bool
}

func (h *stubHandler) Name() string { return h.name }

func (h *stubHandler) Run(context.Context, map[string]any, Context) (map[string]any, error) {
	if h.panics {
		panic("boom")
	}
	return h.result, h.err
}

func testRegistry(handlers ...Handler) *Registry {
	table := make(map[string]Handler, len(handlers))
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		table[h.Name()] = h
		names = append(names, h.Name())
	}
	return &Registry{table: table, names: names, log: logger.NewNop()}
}

func testToolContext() Context {
	return Context{UserID: "u1", Settings: model.DefaultSettings()}
}

func TestNewRegistryAllowlist(t *testing.T) {
	reg := NewRegistry(Config{}, logger.NewNop())

	want := []string{"get_datetime", "get_weather", "web_search", "recipe_search", "calculate_route"}
	got := reg.Allowlist()
	if len(got) != len(want) {
		t.Fatalf("allowlist length = %d, want %d", len(got), len(want))
	}
	for _, name := range want {
		if !reg.Allowed(name) {
			t.Errorf("Allowed(%q) = false, want true", name)
		}
	}
	if reg.Allowed("delete_everything") {
		t.Error("Allowed accepted an unlisted tool")
	}
}

func TestRunUnlistedTool(t *testing.T) {
	reg := testRegistry()

	outcome := reg.Run(context.Background(), "nope", nil, testToolContext())

	if outcome.OK {
		t.Fatal("outcome.OK = true for unlisted tool")
	}
	if outcome.Tool != "nope" {
		t.Errorf("outcome.Tool = %q, want %q", outcome.Tool, "nope")
	}
	if outcome.Args == nil {
		t.Error("outcome.Args is nil, want empty map")
	}
	if outcome.Error == nil || outcome.Error.Code != "tool_error" {
		t.Fatalf("outcome.Error = %+v, want code tool_error", outcome.Error)
	}
}

func TestRunSuccess(t *testing.T) {
	reg := testRegistry(&stubHandler{name: "echo", result: map[string]any{"v": 1}})

	outcome := reg.Run(context.Background(), "echo", map[string]any{"x": "y"}, testToolContext())

	if !outcome.OK {
		t.Fatalf("outcome.OK = false: %+v", outcome.Error)
	}
	if outcome.Result["v"] != 1 {
		t.Errorf("result = %v, want v=1", outcome.Result)
	}
	if outcome.Error != nil {
		t.Errorf("outcome.Error = %+v, want nil", outcome.Error)
	}
}

func TestRunToolError(t *testing.T) {
	reg := testRegistry(&stubHandler{name: "broken", err: Errorf("Ort nicht gefunden: Atlantis")})

	outcome := reg.Run(context.Background(), "broken", nil, testToolContext())

	if outcome.OK {
		t.Fatal("outcome.OK = true for failing tool")
	}
	if outcome.Error.Code != "tool_error" {
		t.Errorf("code = %q, want tool_error", outcome.Error.Code)
	}
	if outcome.Error.Message != "Ort nicht gefunden: Atlantis" {
		t.Errorf("message = %q", outcome.Error.Message)
	}
}

func TestRunUnexpectedError(t *testing.T) {
	reg := testRegistry(&stubHandler{name: "flaky", err: errors.New("connection reset")})

	outcome := reg.Run(context.Background(), "flaky", nil, testToolContext())

	if outcome.OK {
		t.Fatal("outcome.OK = true")
	}
	if outcome.Error.Code != "tool_crash" {
		t.Errorf("code = %q, want tool_crash", outcome.Error.Code)
	}
	if outcome.Error.Message != "Tool execution failed" {
		t.Errorf("message = %q, want generic crash message", outcome.Error.Message)
	}
}

func TestRunPanicRecovered(t *testing.T) {
	reg := testRegistry(&stubHandler{name: "bomb", panics: true})

	outcome := reg.Run(context.Background(), "bomb", nil, testToolContext())

	if outcome.OK {
		t.Fatal("outcome.OK = true after panic")
	}
	if outcome.Error == nil || outcome.Error.Code != "tool_crash" {
		t.Fatalf("outcome.Error = %+v, want tool_crash", outcome.Error)
	}
	if outcome.Result != nil {
		t.Error("outcome.Result not cleared after panic")
	}
}

func TestSourceEntries(t *testing.T) {
	outcome := Outcome{
		OK:   true,
		Tool: "web_search",
		Result: map[string]any{
			"results": []any{
				map[string]any{"title": "A", "url": "https://a.example", "snippet": "x"},
				map[string]any{"title": "B", "url": "https://b.example"},
				map[string]any{"title": "", "url": ""},
				map[string]any{"title": "C", "url": "https://c.example"},
			},
		},
	}

	entries := outcome.SourceEntries(2)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0] != [2]string{"A", "https://a.example"} {
		t.Errorf("entries[0] = %v", entries[0])
	}
	if entries[1] != [2]string{"B", "https://b.example"} {
		t.Errorf("entries[1] = %v", entries[1])
	}
}

func TestIsSearchTool(t *testing.T) {
	for name, want := range map[string]bool{
		"web_search":      true,
		"recipe_search":   true,
		"get_weather":     false,
		"get_datetime":    false,
		"calculate_route": false,
	} {
		if got := IsSearchTool(name); got != want {
			t.Errorf("IsSearchTool(%q) = %v, want %v", name, got, want)
		}
	}
}
