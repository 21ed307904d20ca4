// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// --- mocks ---

type mockProvider struct {
	results []types.Source
	err     error
	calls   int
	limit   int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Search(_ context.Context, _ string, maxResults int) ([]types.Source, error) {
	m.calls++
	m.limit = maxResults
	return m.results, m.err
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]types.Source
}

func (c *memCache) Get(_ context.Context, key string) ([]types.Source, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Put(_ context.Context, key string, results []types.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string][]types.Source)
	}
	c.data[key] = results
	return nil
}

func sources(n int) []types.Source {
	out := make([]types.Source, n)
	for i := range out {
		out[i] = types.Source{Title: fmt.Sprintf("T%d", i), URL: fmt.Sprintf("https://example.com/%d", i), Snippet: "s"}
	}
	return out
}

// --- NewTool ---

func TestNewTool(t *testing.T) {
	tests := []struct {
		name     string
		cfg      types.SearchConfig
		wantName string
		wantErr  string
	}{
		{"duckduckgo", types.SearchConfig{Provider: types.SearchDuckDuckGo}, "duckduckgo", ""},
		{"serper", types.SearchConfig{Provider: types.SearchSerper, SerperAPIKey: "k"}, "serper", ""},
		{"tavily", types.SearchConfig{Provider: types.SearchTavily, TavilyAPIKey: "k"}, "tavily", ""},
		{"serper without key", types.SearchConfig{Provider: types.SearchSerper}, "", "Serper requires API key"},
		{"tavily without key", types.SearchConfig{Provider: types.SearchTavily}, "", "Tavily requires API key"},
		{"unknown", types.SearchConfig{Provider: "bing"}, "", "unknown search provider: bing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := NewTool(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, tool.Provider())
		})
	}
}

// --- Tool ---

func TestToolSearchDefaultLimit(t *testing.T) {
	p := &mockProvider{results: sources(10)}
	tool := NewToolWithProvider(p, 3, nil, nil)

	got := tool.Search(context.Background(), "go", 0)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, p.limit)
}

func TestToolSearchProviderFailureReturnsEmpty(t *testing.T) {
	p := &mockProvider{err: errors.New("connection refused")}
	tool := NewToolWithProvider(p, 5, nil, nil)

	got := tool.Search(context.Background(), "go", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err := tool.SearchE(context.Background(), "go", 5)
	assert.ErrorContains(t, err, "connection refused")
}

func TestToolSearchEmptyQuery(t *testing.T) {
	p := &mockProvider{results: sources(1)}
	tool := NewToolWithProvider(p, 5, nil, nil)

	_, err := tool.SearchE(context.Background(), "   ", 5)
	assert.Error(t, err)
	assert.Equal(t, 0, p.calls)
}

func TestToolSearchCache(t *testing.T) {
	p := &mockProvider{results: sources(2)}
	cache := &memCache{}
	tool := NewToolWithProvider(p, 5, cache, nil)

	first := tool.Search(context.Background(), "Go  Concurrency", 5)
	second := tool.Search(context.Background(), "go concurrency", 5)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls, "second query served from cache")
}

func TestToolSearchDoesNotCacheEmpty(t *testing.T) {
	p := &mockProvider{}
	cache := &memCache{}
	tool := NewToolWithProvider(p, 5, cache, nil)

	tool.Search(context.Background(), "nothing", 5)
	tool.Search(context.Background(), "nothing", 5)
	assert.Equal(t, 2, p.calls)
}

// --- Deduplication ---

func TestDeduplicate(t *testing.T) {
	in := []types.Source{
		{Title: "Go Generics", URL: "https://www.example.com/generics/"},
		{Title: "Generics in Go", URL: "https://example.com/generics?utm_source=x"},
		{Title: "go generics!", URL: "https://other.org/a"},
		{Title: "Channels", URL: "https://example.com/channels"},
	}

	kept, removed := Deduplicate(in)
	assert.Equal(t, 2, removed)
	require.Len(t, kept, 2)
	assert.Equal(t, "Go Generics", kept[0].Title)
	assert.Equal(t, "Channels", kept[1].Title)
}

func TestDeduplicateKeepsUntitled(t *testing.T) {
	in := []types.Source{
		{URL: "https://a.com"},
		{URL: "https://b.com"},
	}
	kept, removed := Deduplicate(in)
	assert.Equal(t, 0, removed)
	assert.Len(t, kept, 2)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://www.Example.com/path/", "example.com/path"},
		{"http://example.com/path#frag", "example.com/path"},
		{"https://example.com/p?utm_medium=a&id=3", "example.com/p?id=3"},
		{"not a url/", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

// --- Serper ---

func TestSerperSearch(t *testing.T) {
	var gotKey string
	var gotBody serperRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotKey = r.Header.Get("X-API-KEY")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"organic":[
			{"title":"A","link":"https://a.com","snippet":"sa","position":1},
			{"title":"B","link":"https://b.com","snippet":"sb","position":2},
			{"title":"C","link":"https://c.com","snippet":"sc","position":3}]}`)
	}))
	defer ts.Close()

	old := serperAPIURL
	serperAPIURL = ts.URL
	defer func() { serperAPIURL = old }()

	s := &Serper{Client: ts.Client(), APIKey: "secret"}
	got, err := s.Search(context.Background(), "golang", 2)
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, serperRequest{Q: "golang", Num: 2}, gotBody)
	require.Len(t, got, 2)
	assert.Equal(t, types.Source{Title: "A", URL: "https://a.com", Snippet: "sa", Provider: "serper"}, got[0])
}

func TestSerperHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	old := serperAPIURL
	serperAPIURL = ts.URL
	defer func() { serperAPIURL = old }()

	s := &Serper{Client: ts.Client(), APIKey: "bad"}
	_, err := s.Search(context.Background(), "golang", 5)
	assert.ErrorContains(t, err, "HTTP 403")
}

// --- Tavily ---

func TestTavilySearch(t *testing.T) {
	var gotBody tavilyRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"results":[{"title":"T","url":"https://t.io","content":"body","score":0.8}]}`)
	}))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	tv := &Tavily{Client: ts.Client(), APIKey: "tk"}
	got, err := tv.Search(context.Background(), "rust vs go", 4)
	require.NoError(t, err)

	assert.Equal(t, "tk", gotBody.APIKey)
	assert.Equal(t, "advanced", gotBody.SearchDepth)
	assert.Equal(t, 4, gotBody.MaxResults)
	require.Len(t, got, 1)
	assert.Equal(t, "body", got[0].Snippet)
	assert.Equal(t, "tavily", got[0].Provider)
}

func TestTavilyMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>`)
	}))
	defer ts.Close()

	old := tavilyAPIURL
	tavilyAPIURL = ts.URL
	defer func() { tavilyAPIURL = old }()

	tv := &Tavily{Client: ts.Client(), APIKey: "tk"}
	_, err := tv.Search(context.Background(), "q", 4)
	assert.ErrorContains(t, err, "parsing Tavily response")
}

// --- DuckDuckGo ---

const ddgPage = `<html><body>
<div class="result results_links result--ad">
  <a class="result__a" href="https://duckduckgo.com/y.js?ad_provider=x">Sponsored</a>
  <a class="result__snippet">Buy now</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">The <b>Go</b> Programming Language</a></h2>
  <a class="result__snippet" href="#">Documentation for the <b>Go</b>   language.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://gobyexample.com/">Go by Example</a></h2>
  <a class="result__snippet">Hands-on introduction.</a>
</div>
<div class="result results_links">
  <h2><a class="result__a" href="https://third.example/">Third</a></h2>
</div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	got, err := parseDuckDuckGo(strings.NewReader(ddgPage), 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "The Go Programming Language", got[0].Title)
	assert.Equal(t, "https://go.dev/doc/", got[0].URL)
	assert.Equal(t, "Documentation for the Go language.", got[0].Snippet)
	assert.Equal(t, "https://gobyexample.com/", got[1].URL)
	assert.Empty(t, got[2].Snippet)
}

func TestParseDuckDuckGoLimit(t *testing.T) {
	got, err := parseDuckDuckGo(strings.NewReader(ddgPage), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://go.dev/doc/", got[0].URL)
}

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("q")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, ddgPage)
	}))
	defer ts.Close()

	old := duckDuckGoURL
	duckDuckGoURL = ts.URL
	defer func() { duckDuckGoURL = old }()

	d := &DuckDuckGo{Client: ts.Client(), UserAgent: "blog-generator/1.0"}
	got, err := d.Search(context.Background(), "golang docs", 2)
	require.NoError(t, err)

	assert.Equal(t, "golang docs", gotQuery)
	assert.Equal(t, "blog-generator/1.0", gotUA)
	assert.Len(t, got, 2)
}

// --- Formatting ---

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable([]types.Source{{Title: strings.Repeat("x", 80), URL: "https://a.com"}}, &buf)
	out := buf.String()
	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "1 results")

	buf.Reset()
	FormatTable(nil, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sources(2), &buf))

	var decoded []types.Source
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))

	got := truncate(strings.Repeat("并发编程", 5), 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "并发编程并发编...", got)
}
