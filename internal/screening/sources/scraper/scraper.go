// Package scraper fetches a registry search page and reduces it to visible text.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"

	"quickfi/internal/screening/sources"
)

const (
	sourceName = "scraper"

	// QueryPlaceholder in a registry URL is replaced with the escaped search query.
	QueryPlaceholder = "{query}"

	defaultMaxChars = 20000
)

// Scraper performs plain HTTP fetches. Pages that need a browser are out of reach.
type Scraper struct {
	client    sources.HTTPDoer
	maxChars  int
	userAgent string
}

type Option func(*Scraper)

func WithHTTPClient(c sources.HTTPDoer) Option {
	return func(s *Scraper) { s.client = c }
}

// WithMaxChars bounds the returned text.
func WithMaxChars(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

func New(timeout time.Duration, opts ...Option) *Scraper {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	s := &Scraper{
		client:    &http.Client{Timeout: timeout},
		maxChars:  defaultMaxChars,
		userAgent: "quickfi-screening/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch loads pageURL, with query substituted for QueryPlaceholder, and
// returns the page's visible text.
func (s *Scraper) Fetch(ctx context.Context, pageURL, query string) (string, error) {
	target := strings.ReplaceAll(pageURL, QueryPlaceholder, url.QueryEscape(query))
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", sources.NewSourceError(sources.ErrorInternal, sourceName, "invalid page url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create request", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return "", se
	}

	text, err := VisibleText(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to parse page", err)
	}
	return truncate(text, s.maxChars), nil
}

// truncate cuts text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// VisibleText returns the text nodes of an HTML document outside script,
// style and noscript elements, whitespace collapsed.
func VisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String(), nil
}
