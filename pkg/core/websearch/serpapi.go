package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const serpAPIURL = "https://serpapi.com/search"

var ErrMissingAPIKey = errors.New("serpapi: api key not set")

// SerpAPIClient runs Google news searches through SerpAPI.
type SerpAPIClient struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func NewSerpAPIClient(apiKey string) *SerpAPIClient {
	return &SerpAPIClient{
		APIKey:  apiKey,
		BaseURL: serpAPIURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type serpItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

type serpResponse struct {
	Error          string     `json:"error"`
	NewsResults    []serpItem `json:"news_results"`
	OrganicResults []serpItem `json:"organic_results"`
}

func (c *SerpAPIClient) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.APIKey)
	params.Set("engine", "google")
	params.Set("tbm", "nws")
	if max > 0 {
		params.Set("num", strconv.Itoa(max))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi search failed: %w", err)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serpapi search failed: status %d: %s", resp.StatusCode, body)
	}

	var data serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	if data.Error != "" {
		return nil, fmt.Errorf("serpapi search failed: %s", data.Error)
	}

	items := data.NewsResults
	if len(items) == 0 {
		items = data.OrganicResults
	}
	results := make([]SearchResult, 0, len(items))
	for _, it := range items {
		results = append(results, SearchResult(it))
	}
	return truncate(results, max), nil
}
