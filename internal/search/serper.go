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

// serperAPIURL is the Serper search endpoint. Declared as a var so tests can
// substitute an httptest server.
var serperAPIURL = "https://google.serper.dev/search"

// Serper queries the Serper.dev Google search API. Requires an API key.
type Serper struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the provider identifier.
func (s *Serper) Name() string { return types.SearchSerper }

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// Search posts the query and maps the organic results.
func (s *Serper) Search(ctx context.Context, query string, maxResults int) ([]types.Source, error) {
	payload, err := json.Marshal(serperRequest{Q: query, Num: maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Serper API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Serper API returned HTTP %d", resp.StatusCode)
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Serper response: %w", err)
	}

	results := make([]types.Source, 0, len(sr.Organic))
	for _, item := range sr.Organic {
		if len(results) == maxResults {
			break
		}
		results = append(results, types.Source{
			Title:    item.Title,
			URL:      item.Link,
			Snippet:  item.Snippet,
			Provider: types.SearchSerper,
		})
	}
	return results, nil
}
