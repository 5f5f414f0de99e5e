package evidence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/research"
	"research_assistant/pkg/core/websearch"

	"github.com/rs/zerolog"
)

// Result caps for the three searches.
const (
	GeneralResults   = 7
	FinancialResults = 3
	TrendingResults  = 5
)

// WebProvider answers from live web search. The time range is accepted but
// not applied; the search backends cannot filter by period.
type WebProvider struct {
	search websearch.Searcher
	gen    generator
}

var _ research.EvidenceProvider = (*WebProvider)(nil)

func NewWebProvider(search websearch.Searcher, gen llm.Generator, prompts *prompt.Registry, subject string) *WebProvider {
	return &WebProvider{search: search, gen: newGenerator(gen, prompts, subject)}
}

type webSection struct {
	title   string
	query   string
	max     int
	results []websearch.SearchResult
	err     error
}

func (p *WebProvider) sections(query string) []*webSection {
	subject := p.gen.subject
	general := query
	if !strings.Contains(strings.ToLower(query), strings.ToLower(subject)) {
		general = subject + " " + query
	}
	return []*webSection{
		{title: "General Search Results", query: general, max: GeneralResults},
		{title: "Financial News", query: fmt.Sprintf("%s %s financial earnings stock", subject, query), max: FinancialResults},
		{title: fmt.Sprintf("Trending %s Topics", subject), query: subject + " trending news", max: TrendingResults},
	}
}

func (p *WebProvider) Answer(ctx context.Context, query string, _ period.TimeRange) (*research.AgentResult, error) {
	logger := zerolog.Ctx(ctx)
	sections := p.sections(query)

	var errs []error
	var failed []string
	total := 0
	for _, s := range sections {
		s.results, s.err = p.search.Search(ctx, s.query, s.max)
		if s.err != nil {
			logger.Warn().Err(s.err).Str("section", s.title).Msg("web search failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.title, s.err))
			failed = append(failed, s.title)
			continue
		}
		if len(s.results) > s.max {
			s.results = s.results[:s.max]
		}
		total += len(s.results)
	}
	if len(errs) == len(sections) {
		return nil, fmt.Errorf("all web searches failed: %w", errors.Join(errs...))
	}

	if total == 0 {
		return &research.AgentResult{
			Provider: research.Web,
			Content: fmt.Sprintf("No relevant web results were found about %s for this question.",
				p.gen.subject),
			Empty:          true,
			StructuredData: webData([]string{}, 0, failed),
		}, nil
	}

	blocks := make([]string, len(sections))
	for i, s := range sections {
		blocks[i] = FormatSearchResults(s.title, s.results)
	}
	vars := prompt.NewContext().
		Set("Query", query).
		Set("SearchResults", strings.Join(blocks, "\n\n"))
	text, err := p.gen.answer(ctx, prompt.PromptIDs.Web, vars)
	if err != nil {
		return nil, err
	}

	return &research.AgentResult{
		Provider: research.Web,
		Content:  text,
		StructuredData: webData(distinctSources(sections), total, failed),
	}, nil
}

// webData lists failed_searches only when some section search failed.
func webData(sources []string, count int, failed []string) map[string]any {
	data := map[string]any{"sources": sources, "result_count": count}
	if len(failed) > 0 {
		data["failed_searches"] = failed
	}
	return data
}

// FormatSearchResults renders one titled section of results.
func FormatSearchResults(title string, results []websearch.SearchResult) string {
	if len(results) == 0 {
		return title + ":\nNo results found."
	}
	parts := []string{title + ":"}
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("Result %d:\nTitle: %s\nSource: %s\nDate: %s\nSnippet: %s",
			i+1, orNA(r.Title), orNA(r.Source), orNA(r.Date), orNA(r.Snippet)))
	}
	return strings.Join(parts, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func distinctSources(sections []*webSection) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range sections {
		for _, r := range s.results {
			if r.Source == "" || seen[r.Source] {
				continue
			}
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	return out
}
