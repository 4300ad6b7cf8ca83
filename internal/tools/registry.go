// Package tools implements the allow-listed, schema-validated lookups the
// planner may request before a reply is generated.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

// Handler is one tool variant: it validates its own arguments and returns a
// result map safe to show to end users and the model, or a *ToolError.
type Handler interface {
	Name() string
	Run(ctx context.Context, args map[string]any, tc Context) (map[string]any, error)
}

// Config carries tool backend endpoints and timeouts. Empty URLs fall back
// to the public defaults; tests point them at local servers.
type Config struct {
	SearxURL       string
	GeocodeURL     string
	ForecastURL    string
	OSRMURL        string
	WeatherTimeout time.Duration
	SearchTimeout  time.Duration
	RouteTimeout   time.Duration
}

// Registry holds the closed tool table. The set is fixed at construction;
// there is no runtime registration.
type Registry struct {
	table map[string]Handler
	names []string
	log   *logger.Logger
}

// NewRegistry builds the registry with all five tools wired against cfg.
func NewRegistry(cfg Config, log *logger.Logger) *Registry {
	webSearch := newWebSearch(cfg)
	handlers := []Handler{
		newGetDatetime(),
		newGetWeather(cfg),
		webSearch,
		newRecipeSearch(webSearch),
		newCalculateRoute(cfg),
	}

	table := make(map[string]Handler, len(handlers))
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		table[h.Name()] = h
		names = append(names, h.Name())
	}
	return &Registry{table: table, names: names, log: log}
}

// Allowlist returns the fixed tool names.
func (r *Registry) Allowlist() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Allowed reports whether name is on the allow-list.
func (r *Registry) Allowed(name string) bool {
	_, ok := r.table[name]
	return ok
}

// Run executes one tool invocation and always returns a complete Outcome;
// no error ever crosses this boundary. Every invocation is timed and logged
// regardless of result.
func (r *Registry) Run(ctx context.Context, name string, args map[string]any, tc Context) Outcome {
	if args == nil {
		args = map[string]any{}
	}

	handler, ok := r.table[name]
	if !ok {
		return Outcome{
			OK:    false,
			Tool:  name,
			Args:  args,
			Error: &OutcomeError{Code: "tool_error", Message: "Tool not allowlisted: " + name},
		}
	}

	start := time.Now()
	outcome := r.invoke(ctx, handler, args, tc)

	duration := time.Since(start)
	r.log.Infow("tool executed",
		"tool", name,
		"ok", outcome.OK,
		"duration_ms", duration.Milliseconds(),
	)
	metrics.RecordTool(name, outcome.OK, duration.Seconds())

	return outcome
}

func (r *Registry) invoke(ctx context.Context, handler Handler, args map[string]any, tc Context) (outcome Outcome) {
	outcome = Outcome{Tool: handler.Name(), Args: args}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Errorw("tool crashed", "tool", handler.Name(), "panic", rec)
			outcome.OK = false
			outcome.Result = nil
			outcome.Error = &OutcomeError{Code: "tool_crash", Message: "Tool execution failed"}
		}
	}()

	result, err := handler.Run(ctx, args, tc)
	if err != nil {
		if te, ok := err.(*ToolError); ok {
			outcome.Error = &OutcomeError{Code: te.Code, Message: te.Message}
			return outcome
		}
		r.log.Errorw("tool failed unexpectedly", "tool", handler.Name(), "error", err)
		outcome.Error = &OutcomeError{Code: "tool_crash", Message: "Tool execution failed"}
		return outcome
	}

	outcome.OK = true
	outcome.Result = result
	return outcome
}

// decodeArgs coerces a raw argument map into a tool's typed argument
// struct. Unknown fields are ignored; type mismatches fail.
func decodeArgs(raw map[string]any, dst any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.NewDecoder(bytes.NewReader(data)).Decode(dst)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
