package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OpenAICompatProvider talks to any chat-completions endpoint that follows the
// OpenAI wire format (OpenAI itself, DeepSeek, local gateways).
type OpenAICompatProvider struct {
	Name      string // used in error messages, e.g. "deepseek"
	BaseURL   string // e.g. "https://api.deepseek.com"
	APIKeyEnv string // environment variable holding the key
	Model     string
	Client    *http.Client
}

var _ Provider = (*OpenAICompatProvider)(nil)

// NewDeepSeekProvider returns the DeepSeek chat provider.
func NewDeepSeekProvider() *OpenAICompatProvider {
	return &OpenAICompatProvider{
		Name:      "deepseek",
		BaseURL:   "https://api.deepseek.com",
		APIKeyEnv: "DEEPSEEK_API_KEY",
		Model:     "deepseek-chat",
	}
}

// NewOpenAIProvider returns the OpenAI chat provider.
func NewOpenAIProvider() *OpenAICompatProvider {
	return &OpenAICompatProvider{
		Name:      "openai",
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "OPENAI_API_KEY",
		Model:     "gpt-4o-mini",
	}
}

// ChatRequest is the request body of a chat-completions call.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// ChatResponse is the subset of the chat-completions response we read.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAICompatProvider) httpClient() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 120 * time.Second}
}

func (p *OpenAICompatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := os.Getenv(p.APIKeyEnv)
	if val := optString(options, "api_key"); val != "" {
		apiKey = val
	}
	if apiKey == "" {
		return "", fmt.Errorf("%s: %s not set", p.Name, p.APIKeyEnv)
	}

	model := p.Model
	if val := optString(options, "model"); val != "" {
		model = val
	}

	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Content: systemPrompt, Role: "system"})
	}
	messages = append(messages, Message{Content: prompt, Role: "user"})

	reqBody := ChatRequest{
		Messages:    messages,
		Model:       model,
		MaxTokens:   4096,
		Stream:      false,
		Temperature: optFloat(options, "temperature", 0.2),
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := p.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: api call failed: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", p.Name, err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: api returned status %d: %s", p.Name, res.StatusCode, string(body))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.Name, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: %w", p.Name, ErrEmptyResponse)
	}

	return response.Choices[0].Message.Content, nil
}

func (p *OpenAICompatProvider) AdaptInstructions(raw string) string {
	return raw
}
