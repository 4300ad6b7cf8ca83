package tools

import (
	"context"
	"strings"
)

// recipeSearch delegates to web_search with a recipe-oriented query. The
// model produces the final recipe answer and must include sources.
type recipeSearch struct {
	web *webSearch
}

type recipeSearchArgs struct {
	Query string `json:"query"`
}

func newRecipeSearch(web *webSearch) *recipeSearch {
	return &recipeSearch{web: web}
}

func (t *recipeSearch) Name() string { return "recipe_search" }

func (t *recipeSearch) Run(ctx context.Context, raw map[string]any, tc Context) (map[string]any, error) {
	var args recipeSearchArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, Errorf("Invalid args for recipe_search: %v", err)
	}

	query := strings.TrimSpace(args.Query)
	searchQuery := query
	if !strings.HasPrefix(strings.ToLower(query), "rezept") {
		searchQuery = strings.TrimSpace("Rezept " + query)
	}

	maxResults := 5
	result, err := t.web.Run(ctx, map[string]any{
		"query":       searchQuery,
		"max_results": maxResults,
	}, tc)
	if err != nil {
		return nil, err
	}

	result["original_query"] = query
	return result, nil
}
