package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	calls        int
	system, user string
	reply        string
	err          error
}

func (g *stubGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.calls++
	g.system, g.user = system, user
	return g.reply, g.err
}

var _ llm.Generator = (*stubGenerator)(nil)

func defaultPrompts(t *testing.T) *prompt.Registry {
	t.Helper()
	r := prompt.NewRegistry()
	require.NoError(t, prompt.LoadDefaults(r))
	return r
}

func TestSynthesizer_Combine(t *testing.T) {
	gen := &stubGenerator{reply: "```markdown\n## Answer\nRevenue grew.\n```"}
	s := NewSynthesizer(gen, defaultPrompts(t), "")

	out, err := s.Combine(context.Background(), "How is revenue?", []AgentResult{
		{Provider: Web, Content: "Analysts upbeat."},
		{Provider: Document, Failed: true, ErrorMessage: "index unreachable"},
		{Provider: Metrics, Content: "P/E fell."},
	})
	require.NoError(t, err)
	assert.Equal(t, "## Answer\nRevenue grew.", out)
	assert.Equal(t, 1, gen.calls)

	assert.Contains(t, gen.system, "NVIDIA research assistant")
	assert.Contains(t, gen.user, "User Query: How is revenue?")
	assert.Contains(t, gen.user, "Historical Performance (Document Agent):\n[unavailable: index unreachable]")

	doc := strings.Index(gen.user, "Historical Performance")
	met := strings.Index(gen.user, "Financial Metrics (Metrics Agent)")
	web := strings.Index(gen.user, "Real-time Insights (Web Agent)")
	assert.True(t, doc < met && met < web, "blocks are in canonical order")
}

func TestSynthesizer_GenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	s := NewSynthesizer(gen, defaultPrompts(t), "NVIDIA")

	out, err := s.Combine(context.Background(), "q", []AgentResult{{Provider: Web, Content: "news"}})
	assert.Error(t, err)
	assert.Equal(t, FallbackMessage, out)

	gen.err, gen.reply = nil, "   "
	out, err = s.Combine(context.Background(), "q", []AgentResult{{Provider: Web, Content: "news"}})
	assert.True(t, errors.Is(err, llm.ErrEmptyResponse))
	assert.Equal(t, FallbackMessage, out)

	gen.reply = "```markdown\n\n```"
	out, err = s.Combine(context.Background(), "q", []AgentResult{{Provider: Web, Content: "news"}})
	assert.True(t, errors.Is(err, llm.ErrEmptyResponse))
	assert.Equal(t, FallbackMessage, out)
}

func TestSynthesizer_PassesThroughEmptyEvidence(t *testing.T) {
	gen := &stubGenerator{reply: "should not be used"}
	s := NewSynthesizer(gen, defaultPrompts(t), "NVIDIA")

	out, err := s.Combine(context.Background(), "q", []AgentResult{
		{Provider: Metrics, Content: "No financial metrics found for 2021q1 to 2021q4.", Empty: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "No financial metrics found for 2021q1 to 2021q4.", out)
	assert.Zero(t, gen.calls)

	out, err = s.Combine(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, NoResponsesMessage, out)
}

// Metrics-only request against an empty store: the answer is the no-data
// message itself, not a failure.
func TestRoute_MetricsOnlyEmptyStore(t *testing.T) {
	const noData = "No financial metrics found for 2021q1 to 2021q4."
	providers, fakes := newFakes()
	fakes[Metrics].fn = func(context.Context) (*AgentResult, error) {
		return &AgentResult{Provider: Metrics, Content: noData, Empty: true,
			StructuredData: map[string]any{"metrics_count": 0}}, nil
	}
	gen := &stubGenerator{}
	o := NewOrchestrator(providers, NewSynthesizer(gen, defaultPrompts(t), ""), Options{})

	state, err := o.Route(context.Background(), AgentRequest{Query: "valuation?", Providers: []ProviderKind{Metrics}, TimeRange: fullRange(t)})
	require.NoError(t, err)

	require.Len(t, state.Results, 1)
	assert.False(t, state.Results[0].Failed)
	assert.Equal(t, noData, state.Results[0].Content)
	assert.Equal(t, noData, state.Synthesis)
	assert.Zero(t, gen.calls)
	assert.Zero(t, fakes[Document].calls.Load())
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]AgentResult{
		{Provider: Document, Content: "Revenue rose."},
		{Provider: Web, Failed: true, ErrorMessage: "timed out after 1m0s"},
	})
	assert.Equal(t, "Historical Performance (Document Agent):\nRevenue rose.\n\nReal-time Insights (Web Agent):\n[unavailable: timed out after 1m0s]", out)
}
