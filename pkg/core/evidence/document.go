package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"research_assistant/pkg/core/docindex"
	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/research"

	"github.com/rs/zerolog"
)

const DefaultTopK = 5

// DocumentProvider answers from passages of the quarterly reports.
type DocumentProvider struct {
	index docindex.Index
	gen   generator
	TopK  int
}

var _ research.EvidenceProvider = (*DocumentProvider)(nil)

func NewDocumentProvider(index docindex.Index, gen llm.Generator, prompts *prompt.Registry, subject string) *DocumentProvider {
	return &DocumentProvider{index: index, gen: newGenerator(gen, prompts, subject), TopK: DefaultTopK}
}

func (p *DocumentProvider) Answer(ctx context.Context, query string, tr period.TimeRange) (*research.AgentResult, error) {
	logger := zerolog.Ctx(ctx)

	passages, err := p.index.Search(ctx, query, &tr, p.TopK)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}

	widened := false
	if len(passages) == 0 {
		passages, err = p.index.Search(ctx, query, nil, p.TopK)
		if err != nil {
			return nil, fmt.Errorf("unfiltered document search: %w", err)
		}
		if len(passages) > 0 {
			widened = true
			found := make([]string, len(passages))
			for i, ps := range passages {
				found[i] = ps.Period.String()
			}
			logger.Warn().
				Str("time_range", tr.String()).
				Strs("periods_found", found).
				Msg("time filter excluded every passage, using unfiltered results")
		}
	}

	if len(passages) == 0 {
		return &research.AgentResult{
			Provider: research.Document,
			Content: fmt.Sprintf("No relevant information was found in %s's quarterly reports for %s to %s.",
				p.gen.subject, tr.Start, tr.End),
			Empty:          true,
			StructuredData: map[string]any{"sources": []string{}, "result_count": 0},
		}, nil
	}

	vars := prompt.NewContext().
		Set("Query", query).
		Set("Context", FormatPassages(passages))
	text, err := p.gen.answer(ctx, prompt.PromptIDs.Document, vars)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"sources":      distinctPeriods(passages),
		"result_count": len(passages),
	}
	if widened {
		data["filter_widened"] = true
	}
	return &research.AgentResult{Provider: research.Document, Content: text, StructuredData: data}, nil
}

// FormatPassages renders passages as numbered documents with attribution.
func FormatPassages(passages []docindex.Passage) string {
	blocks := make([]string, len(passages))
	for i, ps := range passages {
		blocks[i] = fmt.Sprintf("Document %d:\n%s\n\nSource: %s - %s", i+1, ps.Content, ps.Period, ps.Locator)
	}
	return strings.Join(blocks, "\n\n")
}

func distinctPeriods(passages []docindex.Passage) []string {
	seen := map[period.Quarter]bool{}
	var quarters []period.Quarter
	for _, ps := range passages {
		if ps.Period.IsZero() || seen[ps.Period] {
			continue
		}
		seen[ps.Period] = true
		quarters = append(quarters, ps.Period)
	}
	sort.Slice(quarters, func(i, j int) bool { return quarters[i].Before(quarters[j]) })

	out := make([]string, len(quarters))
	for i, q := range quarters {
		out[i] = q.String()
	}
	return out
}
