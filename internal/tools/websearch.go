package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

const (
	// Hard ceiling on returned results to keep prompts small.
	maxSearchResults = 3
	// Snippets longer than this get truncated before prompting.
	maxSnippetLen = 800
)

// webSearch queries a configured SearXNG instance. Without a configured
// backend the tool fails with a clear setup hint instead of scraping.
type webSearch struct {
	searxURL   string
	httpClient *http.Client
}

type webSearchArgs struct {
	Query      string `json:"query"`
	MaxResults *int   `json:"max_results"`
}

func newWebSearch(cfg Config) *webSearch {
	return &webSearch{
		searxURL:   cfg.SearxURL,
		httpClient: newHTTPClient(cfg.SearchTimeout),
	}
}

func (t *webSearch) Name() string { return "web_search" }

func (t *webSearch) Run(ctx context.Context, raw map[string]any, _ Context) (map[string]any, error) {
	if t.searxURL == "" {
		return nil, Errorf("Web search ist nicht konfiguriert. Setze SEARXNG_URL=http://<host>:<port> (z.B. dein lokales SearXNG).")
	}

	var args webSearchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, Errorf("Invalid args for web_search: %v", err)
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return nil, Errorf("query is required")
	}

	maxResults := 5
	if args.MaxResults != nil {
		maxResults = *args.MaxResults
	}
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > maxSearchResults {
		maxResults = maxSearchResults
	}

	searchURL := buildSearchURL(t.searxURL)
	if searchURL == "" {
		return nil, Errorf("SEARXNG_URL ist ungültig")
	}

	params := url.Values{
		"q":          {query},
		"format":     {"json"},
		"language":   {"de"},
		"safesearch": {"0"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, Errorf("Search request failed")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, Errorf("Search request timeout")
		}
		return nil, Errorf("Search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Errorf("Search request failed")
	}

	var data struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
			Snippet string `json:"snippet"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, Errorf("Search request failed")
	}

	out := make([]map[string]any, 0, maxResults)
	for _, item := range data.Results {
		if len(out) >= maxResults {
			break
		}
		if item.Title == "" && item.URL == "" {
			continue
		}

		snippet := item.Content
		if snippet == "" {
			snippet = item.Snippet
		}
		if len(snippet) > maxSnippetLen {
			snippet = snippet[:maxSnippetLen] + "..."
		}

		out = append(out, map[string]any{
			"title":   strings.TrimSpace(item.Title),
			"url":     strings.TrimSpace(item.URL),
			"snippet": strings.TrimSpace(snippet),
		})
	}

	return map[string]any{
		"query":   query,
		"engine":  "searxng",
		"results": out,
	}, nil
}

// buildSearchURL accepts both "http://host" and "http://host/search".
func buildSearchURL(base string) string {
	b := strings.TrimSpace(base)
	if b == "" {
		return ""
	}
	if strings.HasSuffix(b, "/search") {
		return b
	}
	return strings.TrimRight(b, "/") + "/search"
}
