// Package evidence holds the three evidence providers. Each one fetches
// evidence from its backend, renders it as prompt text and asks the language
// model for an answer grounded in that text.
package evidence

import (
	"context"
	"fmt"

	"research_assistant/pkg/core/llm"
	"research_assistant/pkg/core/prompt"
	"research_assistant/pkg/core/research"
)

// generator bundles what every provider needs to turn evidence into prose.
type generator struct {
	llm     llm.Generator
	prompts *prompt.Registry
	subject string
}

func newGenerator(gen llm.Generator, prompts *prompt.Registry, subject string) generator {
	if subject == "" {
		subject = research.DefaultSubject
	}
	return generator{llm: gen, prompts: prompts, subject: subject}
}

func (g generator) answer(ctx context.Context, promptID string, vars *prompt.PromptExecutionContext) (string, error) {
	vars.Set("Subject", g.subject)
	system, user, err := g.prompts.Render(promptID, vars)
	if err != nil {
		return "", err
	}
	text, err := g.llm.Generate(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return text, nil
}
