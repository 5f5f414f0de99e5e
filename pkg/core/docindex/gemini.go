package docindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultEmbeddingModel = "text-embedding-004"

// GeminiEmbedder embeds queries with a Gemini embedding model. The client is
// created on first use and shared afterwards.
type GeminiEmbedder struct {
	APIKey string
	Model  string

	once   sync.Once
	client *genai.Client
	err    error
}

func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &GeminiEmbedder{APIKey: apiKey, Model: model}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.once.Do(func() {
		if e.APIKey == "" {
			e.err = fmt.Errorf("gemini embedder: api key not set")
			return
		}
		// The client outlives the first request.
		e.client, e.err = genai.NewClient(context.WithoutCancel(ctx), option.WithAPIKey(e.APIKey))
	})
	if e.err != nil {
		return nil, e.err
	}

	res, err := e.client.EmbeddingModel(e.Model).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: empty embedding")
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying client.
func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
