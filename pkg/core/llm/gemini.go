package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements the Provider interface for Google's Gemini models.
// The underlying client is created once and shared; it is safe for concurrent use.
type GeminiProvider struct {
	Model  string // e.g. "gemini-2.0-flash"
	APIKey string // falls back to GEMINI_API_KEY, then GOOGLE_API_KEY

	once    sync.Once
	client  *genai.Client
	initErr error
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("GOOGLE_API_KEY")
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		key := p.apiKey()
		if key == "" {
			p.initErr = fmt.Errorf("GEMINI_API_KEY environment variable not set")
			return
		}
		p.client, p.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if p.initErr != nil {
			p.initErr = fmt.Errorf("failed to create GenAI client: %w", p.initErr)
		}
	})
	return p.client, p.initErr
}

// GenerateResponse sends a generateContent request to the Gemini API using the official GenAI SDK.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := p.Model
	if model == "" {
		model = defaultGeminiModel
	}
	if val := optString(options, "model"); val != "" {
		model = val
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), generateConfig(systemPrompt, options))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := withCitations(result.Text(), result)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}

func generateConfig(systemPrompt string, options map[string]interface{}) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(optFloat(options, "temperature", 0.2))),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	if val, ok := options["google_search"].(bool); ok && val {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return config
}

// withCitations appends the web sources of a grounded answer.
func withCitations(text string, result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return text
	}
	meta := result.Candidates[0].GroundingMetadata
	if meta == nil {
		return text
	}
	var citations []string
	for _, chunk := range meta.GroundingChunks {
		if chunk != nil && chunk.Web != nil {
			citations = append(citations, fmt.Sprintf("[%s](%s)", chunk.Web.Title, chunk.Web.URI))
		}
	}
	if len(citations) == 0 {
		return text
	}
	return fmt.Sprintf("%s\n\n**Sources:**\n%s", text, strings.Join(citations, "\n"))
}
