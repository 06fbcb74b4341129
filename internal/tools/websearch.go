package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/Sibikrish3000/cr-agent/internal/config"
)

const (
	defaultSearchURL  = "https://html.duckduckgo.com/html/"
	defaultMaxResults = 5
	maxSnippetLen     = 300
	noSearchResults   = "No search results found."
	searchCacheTool   = "web_search"
	searchUserAgent   = "Mozilla/5.0 (compatible; cr-agent/1.0)"
)

// SearchResult is one organic web search hit.
type SearchResult struct {
	Title string
	URL   string
	Body  string
}

// WebSearcher queries the DuckDuckGo HTML endpoint.
type WebSearcher struct {
	baseURL    string
	region     string
	maxResults int
	httpClient *http.Client
	cache      Cache
}

// NewWebSearcher creates a searcher. cache may be nil.
func NewWebSearcher(cfg config.SearchConfig, cache Cache) *WebSearcher {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSearchURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebSearcher{
		baseURL:    baseURL,
		region:     cfg.Region,
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Search returns the formatted top results for query. An empty result set is
// reported as "No search results found." rather than an error.
func (s *WebSearcher) Search(ctx context.Context, query string) (string, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, searchCacheTool, query); err != nil {
			log.Warn().Err(err).Str("tool", searchCacheTool).Msg("Tool cache read failed")
		} else if ok {
			return string(data), nil
		}
	}

	results, err := s.Results(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return noSearchResults, nil
	}

	formatted := FormatSearchResults(results)
	if s.cache != nil {
		if err := s.cache.Set(ctx, searchCacheTool, query, []byte(formatted)); err != nil {
			log.Warn().Err(err).Str("tool", searchCacheTool).Msg("Tool cache write failed")
		}
	}
	return formatted, nil
}

// Results fetches and parses up to maxResults hits.
func (s *WebSearcher) Results(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("empty search query")
	}

	form := url.Values{}
	form.Set("q", query)
	if s.region != "" {
		form.Set("kl", s.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	results := parseResults(doc)
	if len(results) > s.maxResults {
		results = results[:s.maxResults]
	}
	return results, nil
}

// FormatSearchResults renders hits as numbered blocks separated by blank lines.
func FormatSearchResults(results []SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		body := r.Body
		if len([]rune(body)) > maxSnippetLen {
			body = string([]rune(body)[:maxSnippetLen-3]) + "..."
		}
		blocks = append(blocks, fmt.Sprintf("**Result %d: %s**\n%s\nSource: %s", i+1, r.Title, body, r.URL))
	}
	return strings.Join(blocks, "\n\n")
}

// SearchFailure renders an error the way the search tool reports it.
func SearchFailure(err error) string {
	return "Search failed: " + Truncate(err.Error(), 200)
}

func parseResults(root *html.Node) []SearchResult {
	var results []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

func parseResult(n *html.Node) (SearchResult, bool) {
	var r SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				r.Title = strings.TrimSpace(textContent(n))
				r.URL = resolveResultURL(attr(n, "href"))
			case hasClass(n, "result__snippet"):
				r.Body = strings.Join(strings.Fields(textContent(n)), " ")
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.Title != "" && r.URL != ""
}

// resolveResultURL unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveResultURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
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
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
