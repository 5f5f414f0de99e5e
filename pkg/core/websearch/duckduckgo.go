package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoClient scrapes the DuckDuckGo HTML endpoint. It needs no key and
// serves as the fallback when SerpAPI is not configured or fails.
type DuckDuckGoClient struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
}

func NewDuckDuckGoClient() *DuckDuckGoClient {
	return &DuckDuckGoClient{
		BaseURL:   duckDuckGoURL,
		UserAgent: "Mozilla/5.0 (compatible; research-assistant/1.0)",
		Client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *DuckDuckGoClient) Search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+url.Values{"q": {query}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo search failed: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse html: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(results) >= max {
			return false
		}
		a := s.Find(".result__a").First()
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return true
		}
		link, _ := a.Attr("href")
		results = append(results, SearchResult{
			Title:   title,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Link:    resolveLink(link),
			Source:  strings.TrimSpace(s.Find(".result__url").First().Text()),
		})
		return true
	})
	return results, nil
}

// resolveLink unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
