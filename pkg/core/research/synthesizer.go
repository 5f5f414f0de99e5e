package research

import (
	"context"
	"fmt"
	"strings"

	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/utils"
)

// FallbackMessage replaces the synthesis when the combining call fails.
const FallbackMessage = "Error combining agent responses."

// DefaultSubject is the company researched when none is configured.
const DefaultSubject = "NVIDIA"

// Synthesizer merges provider results with one generation call.
type Synthesizer struct {
	Generator llm.Generator
	Prompts   *prompt.Registry
	Subject   string
}

func NewSynthesizer(gen llm.Generator, prompts *prompt.Registry, subject string) *Synthesizer {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Synthesizer{Generator: gen, Prompts: prompts, Subject: subject}
}

// Combine returns the merged answer. When generation fails the returned text
// is FallbackMessage and the error says why.
func (s *Synthesizer) Combine(ctx context.Context, query string, results []AgentResult) (string, error) {
	ordered := canonical(results)
	if len(ordered) == 0 {
		return NoResponsesMessage, nil
	}
	if allEmpty(ordered) {
		parts := make([]string, len(ordered))
		for i, r := range ordered {
			parts[i] = r.Content
		}
		return strings.Join(parts, "\n\n"), nil
	}

	vars := prompt.NewContext().
		Set("Subject", s.Subject).
		Set("Query", query).
		Set("Responses", FormatResults(ordered))
	system, user, err := s.Prompts.Render(prompt.PromptIDs.Synthesis, vars)
	if err != nil {
		return FallbackMessage, err
	}

	text, err := s.Generator.Generate(ctx, system, user)
	if err != nil {
		return FallbackMessage, err
	}
	text = utils.CleanMarkdown(text)
	if !utils.ValidateMarkdown(text) {
		return FallbackMessage, fmt.Errorf("synthesis: %w", llm.ErrEmptyResponse)
	}
	return text, nil
}

// FormatResults renders one labeled block per result. Failed results are
// kept so the answer can acknowledge the gap.
func FormatResults(results []AgentResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		body := r.Content
		if r.Failed {
			body = fmt.Sprintf("[unavailable: %s]", r.ErrorMessage)
		}
		blocks = append(blocks, r.Provider.Label()+":\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

func allEmpty(results []AgentResult) bool {
	for _, r := range results {
		if r.Failed || !r.Empty {
			return false
		}
	}
	return true
}

// canonical returns results in Document, Metrics, Web order.
func canonical(results []AgentResult) []AgentResult {
	out := make([]AgentResult, 0, len(results))
	for _, kind := range CanonicalOrder {
		for _, r := range results {
			if r.Provider == kind {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
