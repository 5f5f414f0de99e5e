package evidence

import (
	"context"
	"fmt"
	"strings"

	"research_assistant/pkg/core/charts"
	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/metricstore"
	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/research"

	"github.com/rs/zerolog"
)

// MetricsProvider answers from the structured valuation metrics.
type MetricsProvider struct {
	store  metricstore.Store
	charts charts.Renderer
	gen    generator
}

var _ research.EvidenceProvider = (*MetricsProvider)(nil)

// NewMetricsProvider builds the provider. renderer may be nil, in which case
// answers carry no charts.
func NewMetricsProvider(store metricstore.Store, renderer charts.Renderer, gen llm.Generator, prompts *prompt.Registry, subject string) *MetricsProvider {
	return &MetricsProvider{store: store, charts: renderer, gen: newGenerator(gen, prompts, subject)}
}

func (p *MetricsProvider) Answer(ctx context.Context, query string, tr period.TimeRange) (*research.AgentResult, error) {
	rows, err := p.store.Query(ctx, tr)
	if err != nil {
		return nil, fmt.Errorf("metrics query: %w", err)
	}

	data := map[string]any{
		"charts":        map[string]string{},
		"metrics_count": len(rows),
		"time_range":    map[string]string{"start": tr.Start.String(), "end": tr.End.String()},
	}
	if len(rows) == 0 {
		return &research.AgentResult{
			Provider: research.Metrics,
			Content: fmt.Sprintf("No valuation metrics were found for %s between %s and %s.",
				p.gen.subject, tr.Start, tr.End),
			Empty:          true,
			StructuredData: data,
		}, nil
	}

	trend := MarketCapTrend(rows)
	vars := prompt.NewContext().
		Set("Query", query).
		Set("Metrics", FormatRows(rows)).
		Set("Trend", trend.String())
	text, err := p.gen.answer(ctx, prompt.PromptIDs.Metrics, vars)
	if err != nil {
		return nil, err
	}

	if p.charts != nil {
		rendered, err := p.charts.Render(rows)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("chart rendering failed")
		} else {
			data["charts"] = rendered
		}
	}
	data["trend"] = trend

	return &research.AgentResult{Provider: research.Metrics, Content: text, StructuredData: data}, nil
}

// FormatRows renders rows for the prompt: money in billions, ratios with two
// decimals.
func FormatRows(rows []metricstore.ValuationRow) string {
	blocks := make([]string, len(rows))
	for i, r := range rows {
		var b strings.Builder
		fmt.Fprintf(&b, "Quarter: %s\n", r.Period)
		fmt.Fprintf(&b, "  Market Cap: $%.2f billion\n", r.MarketCap/1e9)
		fmt.Fprintf(&b, "  Enterprise Value: $%.2f billion\n", r.EnterpriseValue/1e9)
		fmt.Fprintf(&b, "  Trailing P/E: %.2f\n", r.TrailingPE)
		fmt.Fprintf(&b, "  Forward P/E: %.2f\n", r.ForwardPE)
		fmt.Fprintf(&b, "  Price-to-Sales: %.2f\n", r.PriceToSales)
		fmt.Fprintf(&b, "  Price-to-Book: %.2f\n", r.PriceToBook)
		fmt.Fprintf(&b, "  Enterprise-to-Revenue: %.2f\n", r.EnterpriseToRevenue)
		fmt.Fprintf(&b, "  Enterprise-to-EBITDA: %.2f\n", r.EnterpriseToEBITDA)
		blocks[i] = b.String()
	}
	return strings.Join(blocks, "\n")
}
