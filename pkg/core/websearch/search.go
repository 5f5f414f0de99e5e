// Package websearch queries live web search backends.
package websearch

import (
	"context"

	"github.com/rs/zerolog"
)

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

// Searcher returns at most max results for query.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]SearchResult, error)
}

// Fallback asks Primary first and Secondary only when Primary errors.
type Fallback struct {
	Primary   Searcher
	Secondary Searcher
}

func (f Fallback) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	results, err := f.Primary.Search(ctx, query, max)
	if err == nil || f.Secondary == nil {
		return results, err
	}
	zerolog.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("primary search failed, using fallback")
	return f.Secondary.Search(ctx, query, max)
}

func truncate(results []SearchResult, max int) []SearchResult {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}
