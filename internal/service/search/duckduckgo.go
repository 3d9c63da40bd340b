package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Client queries the DuckDuckGo HTML endpoint and extracts result snippets.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxResults int
}

// NewClient creates a search client pointed at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxResults: 5,
	}
}

var snippetPattern = regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`)
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Search returns a newline-joined snippet digest for the query.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "safespace-agent/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read search response: %w", err)
	}

	snippets := extractSnippets(string(body), c.maxResults)
	if len(snippets) == 0 {
		return "", fmt.Errorf("no results for %q", query)
	}

	return strings.Join(snippets, "\n"), nil
}

func extractSnippets(page string, limit int) []string {
	var snippets []string
	for _, match := range snippetPattern.FindAllStringSubmatch(page, -1) {
		text := html.UnescapeString(tagPattern.ReplaceAllString(match[1], ""))
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}
		snippets = append(snippets, "- "+text)
		if len(snippets) >= limit {
			break
		}
	}
	return snippets
}
