// Package research implements the multi-agent orchestration engine: it
// routes a question to the requested evidence providers in a fixed order,
// isolates their failures and merges what they produced into one answer.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"research_assistant/pkg/core/period"
)

// ErrInvalidRequest is the only error Route propagates. It is always wrapped
// with the reason.
var ErrInvalidRequest = errors.New("invalid request")

// ProviderKind identifies an evidence source.
type ProviderKind string

const (
	Document ProviderKind = "document"
	Metrics  ProviderKind = "metrics"
	Web      ProviderKind = "web"
	// All expands to every concrete provider. It is never a result key.
	All ProviderKind = "all"
)

// CanonicalOrder is the order providers run in and results are reported in.
var CanonicalOrder = []ProviderKind{Document, Metrics, Web}

var kindAliases = map[string]ProviderKind{
	"document":   Document,
	"rag":        Document,
	"metrics":    Metrics,
	"snowflake":  Metrics,
	"web":        Web,
	"web_search": Web,
	"all":        All,
}

// ParseProviderKind maps a wire tag, including the legacy names rag,
// snowflake and web_search, onto a ProviderKind.
func ParseProviderKind(tag string) (ProviderKind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidRequest, tag)
}

// ParseProviderKinds parses a list of wire tags.
func ParseProviderKinds(tags []string) ([]ProviderKind, error) {
	kinds := make([]ProviderKind, 0, len(tags))
	for _, tag := range tags {
		k, err := ParseProviderKind(tag)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k ProviderKind) valid() bool {
	switch k {
	case Document, Metrics, Web, All:
		return true
	}
	return false
}

// Label is the heading used for the provider's block in a synthesis prompt.
func (k ProviderKind) Label() string {
	switch k {
	case Document:
		return "Historical Performance (Document Agent)"
	case Metrics:
		return "Financial Metrics (Metrics Agent)"
	case Web:
		return "Real-time Insights (Web Agent)"
	}
	return string(k)
}

// AgentRequest is one question routed through the orchestrator.
type AgentRequest struct {
	Query     string
	Providers []ProviderKind
	TimeRange period.TimeRange
}

// AgentResult is what one provider produced for one request.
type AgentResult struct {
	Provider       ProviderKind
	Content        string
	StructuredData map[string]any
	Failed         bool
	ErrorMessage   string
	// Empty is set when the backend answered but had no evidence.
	Empty    bool
	Duration time.Duration
}

// EvidenceProvider answers a query from one evidence source. Empty evidence
// is reported as a non-failed result with Empty set; backend and generation
// problems are returned as errors.
type EvidenceProvider interface {
	Answer(ctx context.Context, query string, tr period.TimeRange) (*AgentResult, error)
}

// ProviderFunc adapts a function to EvidenceProvider.
type ProviderFunc func(ctx context.Context, query string, tr period.TimeRange) (*AgentResult, error)

func (f ProviderFunc) Answer(ctx context.Context, query string, tr period.TimeRange) (*AgentResult, error) {
	return f(ctx, query, tr)
}

// OrchestrationState is the request-scoped record built by one Route call.
type OrchestrationState struct {
	RequestID string
	Query     string
	// Providers is the expanded set in canonical order.
	Providers []ProviderKind
	TimeRange period.TimeRange
	// Results holds one entry per invoked provider in canonical order.
	Results   []AgentResult
	Synthesis string
	LastError string
}

// Result returns the result recorded for kind.
func (s *OrchestrationState) Result(kind ProviderKind) (AgentResult, bool) {
	for _, r := range s.Results {
		if r.Provider == kind {
			return r, true
		}
	}
	return AgentResult{}, false
}

// Kinds lists the providers that have a result, in order.
func (s *OrchestrationState) Kinds() []ProviderKind {
	kinds := make([]ProviderKind, len(s.Results))
	for i, r := range s.Results {
		kinds[i] = r.Provider
	}
	return kinds
}

func (s *OrchestrationState) has(kind ProviderKind) bool {
	_, ok := s.Result(kind)
	return ok
}
