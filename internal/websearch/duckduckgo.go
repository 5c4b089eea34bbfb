// Package websearch fetches a short live-web digest for a query.
package websearch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"statementqa/internal/config"
	"statementqa/internal/domain"
)

const userAgent = "statementqa/1.0 (+https://duckduckgo.com/api)"

// DuckDuckGo queries the instant answer API and falls back to scraping the
// HTML results page when the API has nothing for the query.
type DuckDuckGo struct {
	client       *http.Client
	endpoint     string
	htmlEndpoint string
	maxResults   int
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// New builds a searcher from cfg. A nil client uses one with the configured
// timeout.
func New(cfg config.WebSearchConfig, client *http.Client, logger *slog.Logger) *DuckDuckGo {
	if client == nil {
		timeout := time.Duration(cfg.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &DuckDuckGo{
		client:       client,
		endpoint:     cfg.Endpoint,
		htmlEndpoint: cfg.HTMLEndpoint,
		maxResults:   maxResults,
		limiter:      rate.NewLimiter(limit, 1),
		logger:       logger,
	}
}

// Search returns a plain-text digest. Failures are *domain.SearchError.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", &domain.SearchError{Query: query, Err: err}
	}

	text, apiErr := d.instantAnswer(ctx, query)
	if apiErr == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if apiErr != nil {
		d.logger.DebugContext(ctx, "instant answer failed, trying html results", "error", apiErr)
	}

	text, err := d.htmlResults(ctx, query)
	if err != nil {
		return "", &domain.SearchError{Query: query, Err: err}
	}
	return text, nil
}

func (d *DuckDuckGo) instantAnswer(ctx context.Context, query string) (string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	body, err := d.get(ctx, d.endpoint+"?"+q.Encode())
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("instant answer: invalid JSON")
	}
	res := gjson.ParseBytes(body)

	var parts []string
	if h := res.Get("Heading").String(); h != "" {
		parts = append(parts, "# "+h)
	}
	if a := res.Get("Abstract").String(); a != "" {
		parts = append(parts, a)
		if src := res.Get("AbstractSource").String(); src != "" {
			parts = append(parts, fmt.Sprintf("(Source: %s, %s)", src, res.Get("AbstractURL").String()))
		}
	}
	if a := res.Get("Answer").String(); a != "" {
		parts = append(parts, "Answer: "+a)
	}

	topics := 0
	var collect func(gjson.Result)
	collect = func(list gjson.Result) {
		list.ForEach(func(_, v gjson.Result) bool {
			if topics >= d.maxResults {
				return false
			}
			if nested := v.Get("Topics"); nested.IsArray() {
				collect(nested)
				return true
			}
			if t := v.Get("Text").String(); t != "" {
				parts = append(parts, "- "+t)
				topics++
			}
			return true
		})
	}
	collect(res.Get("RelatedTopics"))

	return strings.Join(parts, "\n\n"), nil
}

func (d *DuckDuckGo) htmlResults(ctx context.Context, query string) (string, error) {
	body, err := d.get(ctx, d.htmlEndpoint+"?q="+url.QueryEscape(query))
	if err != nil {
		return "", fmt.Errorf("html results: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("html results: %w", err)
	}

	var snippets []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(snippets) >= d.maxResults {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result__snippet") {
			if s := strings.Join(strings.Fields(textContent(n)), " "); s != "" {
				snippets = append(snippets, "- "+s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(snippets) == 0 {
		return "", fmt.Errorf("DuckDuckGo returned no results for %q", query)
	}
	return fmt.Sprintf("DuckDuckGo results for %q:\n\n%s", query, strings.Join(snippets, "\n")), nil
}

func (d *DuckDuckGo) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: %s", req.URL.Host, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// Lookup runs s and never fails: a search error becomes the text
// "Search failed: <cause>" and is logged as a warning.
func Lookup(ctx context.Context, s domain.Searcher, query string, logger *slog.Logger) string {
	text, err := s.Search(ctx, query)
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "web search failed", "query", query, "error", err)
		}
		return "Search failed: " + err.Error()
	}
	return text
}
