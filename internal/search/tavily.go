// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/httputil"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Package-level var for test
// substitution.
var tavilyAPIURL = "https://api.tavily.com/search"

// Tavily queries the Tavily AI search API. Requires an API key.
type Tavily struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the provider identifier.
func (t *Tavily) Name() string { return types.SearchTavily }

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search posts an advanced-depth query and maps the results.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]types.Source, error) {
	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.APIKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "advanced",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, t.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Tavily API returned HTTP %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	results := make([]types.Source, 0, len(tr.Results))
	for _, item := range tr.Results {
		if len(results) == maxResults {
			break
		}
		results = append(results, types.Source{
			Title:    item.Title,
			URL:      item.URL,
			Snippet:  item.Content,
			Provider: types.SearchTavily,
		})
	}
	return results, nil
}
