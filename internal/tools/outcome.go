package tools

// OutcomeError is the normalized error part of a tool outcome.
type OutcomeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome is the envelope every tool invocation returns. It is embedded
// into prompts as serialized data and never persisted.
type Outcome struct {
	OK     bool           `json:"ok"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result,omitempty"`
	Error  *OutcomeError  `json:"error,omitempty"`
}

// IsSearchTool reports whether the named tool produces web search results
// that require a trailing source list.
func IsSearchTool(name string) bool {
	return name == "web_search" || name == "recipe_search"
}

// SourceEntries extracts up to max (title, url) pairs from a search tool
// outcome's result entries.
func (o *Outcome) SourceEntries(max int) [][2]string {
	if o == nil || o.Result == nil {
		return nil
	}
	raw, _ := o.Result["results"].([]map[string]any)
	if raw == nil {
		// Results that went through JSON serialization come back as []any.
		if anySlice, ok := o.Result["results"].([]any); ok {
			for _, item := range anySlice {
				if m, ok := item.(map[string]any); ok {
					raw = append(raw, m)
				}
			}
		}
	}

	var out [][2]string
	for _, item := range raw {
		if len(out) >= max {
			break
		}
		title, _ := item["title"].(string)
		url, _ := item["url"].(string)
		if title == "" && url == "" {
			continue
		}
		out = append(out, [2]string{title, url})
	}
	return out
}
