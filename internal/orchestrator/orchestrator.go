// Package orchestrator executes a planner decision and folds the tool
// outcome into the generation prompt.
package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/heimassist/assistant-platform/internal/llm"
	"github.com/heimassist/assistant-platform/internal/planner"
	"github.com/heimassist/assistant-platform/internal/tools"
	"github.com/heimassist/assistant-platform/pkg/logger"
)

// resultMarker prefixes the serialized tool outcome inside the injected
// system message so the model can locate the data block.
const resultMarker = "TOOL_RESULT_JSON:"

// Orchestrator runs at most one tool per reply and augments the prompt
// window with its outcome.
type Orchestrator struct {
	registry *tools.Registry
	log      *logger.Logger
}

func New(registry *tools.Registry, log *logger.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, log: log}
}

// Execute carries out the planner's decision. A respond decision yields no
// outcome; a tool call always yields one, the registry guarantees that even
// crashes come back as a structured envelope.
func (o *Orchestrator) Execute(ctx context.Context, decision planner.Decision, tc tools.Context) *tools.Outcome {
	if decision.Action != planner.ActionToolCall {
		return nil
	}
	outcome := o.registry.Run(ctx, decision.Tool, decision.Args, tc)
	return &outcome
}

// Augment appends a system message carrying the serialized tool outcome and
// answering instructions to the prompt window. With a nil outcome the window
// is returned unchanged.
func (o *Orchestrator) Augment(window []llm.ChatMessage, outcome *tools.Outcome) []llm.ChatMessage {
	if outcome == nil {
		return window
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		// Outcome values are built from decoded JSON, so this does not
		// happen in practice. Degrade to the plain window.
		o.log.Errorw("tool outcome not serializable", "tool", outcome.Tool, "error", err)
		return window
	}

	content := "Du hast soeben das Tool '" + outcome.Tool + "' ausgeführt. " +
		"Das Ergebnis steht unten als JSON. Beantworte die letzte Nutzerfrage " +
		"ausschließlich auf Basis dieses Ergebnisses. Wenn das Ergebnis einen " +
		"Fehler enthält, erkläre dem Nutzer kurz und freundlich, was schiefging. " +
		"Erfinde keine Daten.\n\n" +
		resultMarker + " " + string(payload)

	if tools.IsSearchTool(outcome.Tool) && outcome.OK {
		content += "\n\nFüge am Ende deiner Antwort einen Abschnitt 'Quellen:' an " +
			"und liste die verwendeten Ergebnisse als '- Titel: URL' auf."
	}

	augmented := make([]llm.ChatMessage, 0, len(window)+1)
	augmented = append(augmented, window...)
	augmented = append(augmented, llm.ChatMessage{Role: "system", Content: content})
	return augmented
}
