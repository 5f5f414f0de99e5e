// Package docindex searches passages of indexed quarterly reports.
package docindex

import (
	"context"

	"research_assistant/pkg/core/period"
)

// Passage is one ranked chunk of a report.
type Passage struct {
	Content string
	Score   float64
	Period  period.Quarter
	// Locator points into the source report, e.g. the report key and chunk.
	Locator string
}

// Index returns up to topK passages ranked by relevance. A nil time range
// searches every period.
type Index interface {
	Search(ctx context.Context, query string, tr *period.TimeRange, topK int) ([]Passage, error)
}

// Embedder maps text into the vector space of the index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
