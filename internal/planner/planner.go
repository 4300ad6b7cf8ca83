// Package planner decides, via one auxiliary completion call, whether a
// tool is needed before answering.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/pkg/logger"
	"github.com/heimassist/assistant-platform/pkg/metrics"
)

// Action is the planner's decision kind.
type Action string

const (
	ActionRespond  Action = "respond"
	ActionToolCall Action = "tool_call"
)

// Decision is the planner's structured output: either respond directly or
// invoke exactly one allow-listed tool.
type Decision struct {
	Action Action
	Tool   string
	Args   map[string]any
}

// Respond is the safe-default decision.
func Respond() Decision {
	return Decision{Action: ActionRespond}
}

// Parse errors. They never leave this package's Plan: every one of them
// folds to Respond there.
var (
	ErrNotJSON        = errors.New("planner: output is not a JSON object")
	ErrUnknownAction  = errors.New("planner: unknown action")
	ErrToolNotAllowed = errors.New("planner: tool not in allow-list")
	ErrBadArgs        = errors.New("planner: args is not an object")
)

// tailWindow is how many trailing context messages the planner sees.
const tailWindow = 8

const systemPrompt = `Du bist ein Planner für einen privaten AI Assistant. ` +
	`Du MUSST strikt JSON zurückgeben und darfst keinen Freitext schreiben. ` +
	`Deine Aufgabe: Entscheide, ob ein Tool notwendig ist, um die Frage zu beantworten.

REGELN FÜR TOOLS:
1. Wenn der Nutzer nach aktuellen Nachrichten, Feiertagen, Ferien, Events oder Fakten fragt, NUTZE 'web_search'.
2. Wenn der Nutzer nach dem Wetter fragt, NUTZE 'get_weather'.
3. Wenn der Nutzer nach Rezepten fragt, NUTZE 'recipe_search' oder 'web_search'.
4. Wenn der Nutzer nach einer Route, Fahrzeit oder Entfernung fragt, NUTZE 'calculate_route'.
5. Wenn der Nutzer nur Hallo sagt oder Smalltalk macht, NUTZE 'respond'.

Erlaubte Tools (Allowlist):
- get_datetime args:{}
- get_weather args:{location?:string}
- web_search args:{query:string, max_results?:int}
- recipe_search args:{query:string}
- calculate_route args:{start:string, end:string, mode?:string}

Erlaubte JSON Antworten (exakt ein Objekt):
{"action":"respond"}
ODER {"action":"tool_call","tool":"web_search","args":{"query":"Ferien Rheinland-Pfalz 2026"}}
ODER {"action":"tool_call","tool":"get_weather","args":{"location":"Berlin"}}
`

// Planner asks the completion backend for a decision.
type Planner struct {
	client    llm.Client
	allowlist map[string]bool
	log       *logger.Logger
}

// New creates a planner restricted to the given tool names.
func New(client llm.Client, allowlist []string, log *logger.Logger) *Planner {
	allowed := make(map[string]bool, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = true
	}
	return &Planner{client: client, allowlist: allowed, log: log}
}

// Plan makes one low-temperature, non-streaming completion call and returns
// a decision. It never fails: transport errors and malformed output fold to
// Respond here, the single place that maps parse errors.
func (p *Planner) Plan(ctx context.Context, window []llm.ChatMessage) Decision {
	messages := make([]llm.ChatMessage, 0, tailWindow+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: systemPrompt})
	if len(window) > tailWindow {
		window = window[len(window)-tailWindow:]
	}
	messages = append(messages, window...)

	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   256,
		Temperature: llm.Temp(0),
	})
	if err != nil {
		p.log.Errorw("planner request failed", "error", err)
		metrics.PlannerDecisionsTotal.WithLabelValues(string(ActionRespond)).Inc()
		return Respond()
	}

	decision, err := ParseDecision(resp.Content, p.allowed)
	if err != nil {
		p.log.Debugw("planner output rejected", "error", err)
		decision = Respond()
	}
	metrics.PlannerDecisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	return decision
}

func (p *Planner) allowed(tool string) bool {
	return p.allowlist[tool]
}

// ParseDecision decodes raw model output into a Decision. The allowed
// function reports whether a tool name is on the allow-list. Any malformed
// input yields an error; callers decide what the fallback is.
func ParseDecision(raw string, allowed func(string) bool) (Decision, error) {
	obj, ok := decodeObject(raw)
	if !ok {
		return Decision{}, ErrNotJSON
	}

	action, _ := obj["action"].(string)
	switch action {
	case string(ActionRespond):
		return Respond(), nil
	case string(ActionToolCall):
	default:
		return Decision{}, ErrUnknownAction
	}

	tool, ok := obj["tool"].(string)
	if !ok || !allowed(tool) {
		return Decision{}, ErrToolNotAllowed
	}

	args := map[string]any{}
	if rawArgs, present := obj["args"]; present && rawArgs != nil {
		args, ok = rawArgs.(map[string]any)
		if !ok {
			return Decision{}, ErrBadArgs
		}
	}

	return Decision{Action: ActionToolCall, Tool: tool, Args: args}, nil
}

// decodeObject strips Markdown code fences if present and attempts a
// structural decode. Only a top-level JSON object counts.
func decodeObject(raw string) (map[string]any, bool) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil, false
	}

	if strings.Contains(candidate, "```") {
		parts := make([]string, 0, 4)
		for _, p := range strings.Split(candidate, "```") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		// Prefer the longest fenced block that looks like an object.
		sort.SliceStable(parts, func(i, j int) bool { return len(parts[i]) > len(parts[j]) })
		for _, p := range parts {
			if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
				candidate = p
				break
			}
			if rest, found := strings.CutPrefix(p, "json"); found {
				rest = strings.TrimSpace(rest)
				if strings.HasPrefix(rest, "{") && strings.HasSuffix(rest, "}") {
					candidate = rest
					break
				}
			}
		}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
