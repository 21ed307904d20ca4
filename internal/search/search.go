// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs web searches for the researcher agent through one of
// several providers and returns unified, deduplicated sources.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// Provider searches a single web search API.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.Source, error)
}

// Cache stores search results between runs.
type Cache interface {
	Get(ctx context.Context, key string) ([]types.Source, bool)
	Put(ctx context.Context, key string, results []types.Source) error
}

// Tool delegates queries to the configured provider, applying the default
// result limit and an optional cache.
type Tool struct {
	provider   Provider
	maxResults int
	cache      Cache
	logger     *zap.Logger
}

// Option configures a Tool.
type Option func(*toolOptions)

type toolOptions struct {
	client *http.Client
	cache  Cache
	logger *zap.Logger
}

// WithHTTPClient sets the HTTP client used by the provider.
func WithHTTPClient(c *http.Client) Option { return func(o *toolOptions) { o.client = c } }

// WithCache enables result caching.
func WithCache(c Cache) Option { return func(o *toolOptions) { o.cache = c } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *toolOptions) { o.logger = l } }

// NewTool builds the provider named in cfg.
func NewTool(cfg types.SearchConfig, opts ...Option) (*Tool, error) {
	o := toolOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.TimeoutDuration()}
	}

	var p Provider
	switch cfg.Provider {
	case types.SearchDuckDuckGo:
		p = &DuckDuckGo{Client: o.client, UserAgent: cfg.UserAgent}
	case types.SearchSerper:
		if cfg.SerperAPIKey == "" {
			return nil, fmt.Errorf("Serper requires API key")
		}
		p = &Serper{Client: o.client, APIKey: cfg.SerperAPIKey, UserAgent: cfg.UserAgent}
	case types.SearchTavily:
		if cfg.TavilyAPIKey == "" {
			return nil, fmt.Errorf("Tavily requires API key")
		}
		p = &Tavily{Client: o.client, APIKey: cfg.TavilyAPIKey, UserAgent: cfg.UserAgent}
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	o.logger.Info("initialized search provider", zap.String("provider", p.Name()))
	return &Tool{provider: p, maxResults: maxResults, cache: o.cache, logger: o.logger.Named("search")}, nil
}

// NewToolWithProvider wraps an existing provider.
func NewToolWithProvider(p Provider, maxResults int, cache Cache, logger *zap.Logger) *Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Tool{provider: p, maxResults: maxResults, cache: cache, logger: logger}
}

// Provider returns the underlying provider name.
func (t *Tool) Provider() string { return t.provider.Name() }

// Search runs query and returns at most maxResults sources (the tool default
// when maxResults <= 0). Provider failures are logged and produce no results.
func (t *Tool) Search(ctx context.Context, query string, maxResults int) []types.Source {
	results, err := t.SearchE(ctx, query, maxResults)
	if err != nil {
		t.logger.Error("search failed",
			zap.String("provider", t.provider.Name()),
			zap.String("query", query),
			zap.Error(err))
		return []types.Source{}
	}
	return results
}

// SearchE is Search with the provider error exposed.
func (t *Tool) SearchE(ctx context.Context, query string, maxResults int) ([]types.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	limit := maxResults
	if limit <= 0 {
		limit = t.maxResults
	}

	key := CacheKey(t.provider.Name(), query, limit)
	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, key); ok {
			t.logger.Debug("search cache hit", zap.String("query", query))
			return cached, nil
		}
	}

	t.logger.Debug("searching", zap.String("query", query), zap.Int("max_results", limit))
	results, err := t.provider.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}
	t.logger.Info("search complete",
		zap.String("provider", t.provider.Name()),
		zap.Int("results", len(results)))

	if t.cache != nil && len(results) > 0 {
		if err := t.cache.Put(ctx, key, results); err != nil {
			t.logger.Warn("search cache write failed", zap.Error(err))
		}
	}
	return results, nil
}

// CacheKey identifies a query for caching.
func CacheKey(provider, query string, limit int) string {
	return fmt.Sprintf("%s|%d|%s", provider, limit, strings.ToLower(strings.Join(strings.Fields(query), " ")))
}

// Deduplicate drops sources that share a normalized URL or title with an
// earlier source. It returns the kept sources and the number removed.
func Deduplicate(sources []types.Source) ([]types.Source, int) {
	seen := make(map[string]bool)
	kept := make([]types.Source, 0, len(sources))
	removed := 0

	for _, s := range sources {
		urlKey := "url:" + NormalizeURL(s.URL)
		titleKey := "title:" + normalizeTitle(s.Title)
		if (urlKey != "url:" && seen[urlKey]) || (titleKey != "title:" && seen[titleKey]) {
			removed++
			continue
		}
		if urlKey != "url:" {
			seen[urlKey] = true
		}
		if titleKey != "title:" {
			seen[titleKey] = true
		}
		kept = append(kept, s)
	}
	return kept, removed
}

// NormalizeURL lowercases scheme and host, strips "www.", the fragment,
// common tracking parameters and a trailing slash.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	q := u.Query()
	for k := range q {
		if strings.HasPrefix(k, "utm_") || k == "ref" || k == "fbclid" || k == "gclid" {
			q.Del(k)
		}
	}
	out := host + strings.TrimRight(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// normalizeTitle returns a lowercased, punctuation-stripped title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FormatTable writes sources as a human-readable table to w.
func FormatTable(sources []types.Source, w io.Writer) {
	if len(sources) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %s\n", "Rank", "Title", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, s := range sources {
		fmt.Fprintf(w, "%-4d  %-50s  %s\n", i+1, truncate(s.Title, 50), s.URL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(sources))
}

// FormatJSON writes sources as indented JSON to w.
func FormatJSON(sources []types.Source, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sources)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
