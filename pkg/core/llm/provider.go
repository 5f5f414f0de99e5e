package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Generator is the narrow view used by evidence providers and the synthesizer:
// system instructions plus a user prompt in, text out.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt string, userPrompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Bind turns a Provider into a Generator with fixed call options
// (model, temperature, ...).
func Bind(p Provider, options map[string]interface{}) Generator {
	return GeneratorFunc(func(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
		return p.GenerateResponse(ctx, userPrompt, p.AdaptInstructions(systemPrompt), options)
	})
}

func optString(options map[string]interface{}, key string) string {
	if v, ok := options[key].(string); ok {
		return v
	}
	return ""
}

func optFloat(options map[string]interface{}, key string, def float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}
