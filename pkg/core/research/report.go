package research

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"

	"research_assistant/pkg/core/period"
	"research_assistant/pkg/core/utils"
)

const (
	NoHistoricalData = "No historical data available"
	NoFinancialData  = "No financial data available"
	NoRealtimeData   = "No real-time data available"
)

// Router is the part of the Orchestrator the report path needs.
type Router interface {
	Route(ctx context.Context, req AgentRequest) (*OrchestrationState, error)
}

// ReportResult holds the three report sections and the metrics charts as
// base64 encoded SVG.
type ReportResult struct {
	Subject           string
	TimeRange         period.TimeRange
	HistoricalSection string
	MetricsSection    string
	RealtimeSection   string
	Charts            map[string]string
}

// ReportAssembler asks every provider for a report on the subject and maps
// their answers onto report sections.
type ReportAssembler struct {
	Router  Router
	Subject string
}

func NewReportAssembler(router Router, subject string) *ReportAssembler {
	if subject == "" {
		subject = DefaultSubject
	}
	return &ReportAssembler{Router: router, Subject: subject}
}

// ReportQuery is the question sent to the providers for a report.
func ReportQuery(subject string) string {
	return fmt.Sprintf("Generate a comprehensive research report on %s for the specified time period", subject)
}

func (a *ReportAssembler) Build(ctx context.Context, tr period.TimeRange) (*ReportResult, error) {
	state, err := a.Router.Route(ctx, AgentRequest{
		Query:     ReportQuery(a.Subject),
		Providers: []ProviderKind{All},
		TimeRange: tr,
	})
	if err != nil {
		return nil, err
	}

	report := &ReportResult{
		Subject:           a.Subject,
		TimeRange:         tr,
		HistoricalSection: section(state, Document, NoHistoricalData),
		MetricsSection:    section(state, Metrics, NoFinancialData),
		RealtimeSection:   section(state, Web, NoRealtimeData),
		Charts:            map[string]string{},
	}
	if r, ok := state.Result(Metrics); ok {
		if charts, ok := r.StructuredData["charts"].(map[string]string); ok {
			for name, data := range charts {
				report.Charts[name] = data
			}
		}
	}
	return report, nil
}

func section(state *OrchestrationState, kind ProviderKind, placeholder string) string {
	if r, ok := state.Result(kind); ok && strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return placeholder
}

func (r *ReportResult) chartNames() []string {
	names := make([]string, 0, len(r.Charts))
	for name := range r.Charts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *ReportResult) title() string {
	return fmt.Sprintf("%s Research Report (%s to %s)", r.Subject, r.TimeRange.Start, r.TimeRange.End)
}

// Markdown renders the report as one Markdown document.
func (r *ReportResult) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title())
	fmt.Fprintf(&b, "## Historical Performance\n\n%s\n\n", r.HistoricalSection)
	fmt.Fprintf(&b, "## Financial Metrics\n\n%s\n\n", r.MetricsSection)
	for _, name := range r.chartNames() {
		fmt.Fprintf(&b, "![%s](data:image/svg+xml;base64,%s)\n\n", name, r.Charts[name])
	}
	fmt.Fprintf(&b, "## Real-time Market Insights\n\n%s\n", r.RealtimeSection)
	return b.String()
}

// HTML renders the report as a standalone page. Charts are embedded as
// images after the metrics section.
func (r *ReportResult) HTML() (string, error) {
	var b strings.Builder
	title := html.EscapeString(r.title())
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n<h1>%s</h1>\n", title, title)

	sections := []struct {
		heading, body string
		charts        bool
	}{
		{"Historical Performance", r.HistoricalSection, false},
		{"Financial Metrics", r.MetricsSection, true},
		{"Real-time Market Insights", r.RealtimeSection, false},
	}
	for _, s := range sections {
		body, err := utils.RenderHTML(s.body)
		if err != nil {
			return "", fmt.Errorf("%s: %w", s.heading, err)
		}
		fmt.Fprintf(&b, "<section>\n<h2>%s</h2>\n%s", s.heading, body)
		if s.charts {
			for _, name := range r.chartNames() {
				fmt.Fprintf(&b, "<figure><img alt=\"%s\" src=\"data:image/svg+xml;base64,%s\"></figure>\n",
					html.EscapeString(name), r.Charts[name])
			}
		}
		b.WriteString("</section>\n")
	}
	b.WriteString("</body>\n</html>\n")
	return b.String(), nil
}
