// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/Lingesh-S/multi-agent-blog-generator/internal/httputil"
	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

// duckDuckGoURL is the JavaScript-free results page. Package-level var for
// test substitution.
var duckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. No API key required.
type DuckDuckGo struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the provider identifier.
func (d *DuckDuckGo) Name() string { return types.SearchDuckDuckGo }

// Search fetches the results page for query and parses up to maxResults
// organic results.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]types.Source, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, duckDuckGoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ua := d.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (compatible; blog-generator/1.0)"
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httputil.DoWithRetry(ctx, d.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("DuckDuckGo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned HTTP %d", resp.StatusCode)
	}

	results, err := parseDuckDuckGo(resp.Body, maxResults)
	if err != nil {
		return nil, fmt.Errorf("parsing DuckDuckGo results: %w", err)
	}
	return results, nil
}

// parseDuckDuckGo walks the results page. Each organic result carries an
// anchor with class "result__a" (title and link) followed by an element with
// class "result__snippet". Sponsored results link through /y.js and are
// skipped.
func parseDuckDuckGo(r io.Reader, maxResults int) ([]types.Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []types.Source
	var current *types.Source

	flush := func() {
		if current != nil && current.URL != "" && current.Title != "" {
			results = append(results, *current)
		}
		current = nil
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				flush()
				link := resolveDuckDuckGoLink(attr(n, "href"))
				if link != "" {
					current = &types.Source{
						Title:    collapse(textContent(n)),
						URL:      link,
						Provider: types.SearchDuckDuckGo,
					}
				}
				return
			case hasClass(n, "result__snippet"):
				if current != nil {
					current.Snippet = collapse(textContent(n))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if maxResults <= 0 || len(results) < maxResults {
		flush()
	}
	return results, nil
}

// resolveDuckDuckGoLink unwraps the /l/?uddg= redirect and drops ad links.
func resolveDuckDuckGoLink(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") {
		if u.Path == "/y.js" {
			return ""
		}
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
