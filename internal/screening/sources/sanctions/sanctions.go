// Package sanctions queries a consolidated screening list by entity name.
package sanctions

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quickfi/internal/screening/sources"
)

const sourceName = "sanctions"

type searchResponse struct {
	Total   int           `json:"total"`
	Results []searchEntry `json:"results"`
}

type searchEntry struct {
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Score  float64 `json:"score"` // 0..100
}

// Client searches the screening list with fuzzy name matching.
type Client struct {
	baseURL string
	apiKey  string
	client  sources.HTTPDoer
}

type Option func(*Client)

func WithHTTPClient(c sources.HTTPDoer) Option {
	return func(cl *Client) { cl.client = c }
}

func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search reports whether any listed entity matches name with a score of at
// least minScore (0..100).
func (c *Client) Search(ctx context.Context, name string, minScore int) (bool, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("fuzzy_name", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return false, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("subscription-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return false, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to read response", err)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return false, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to decode response", err)
	}

	for _, entry := range sr.Results {
		if entry.Score >= float64(minScore) {
			return true, nil
		}
	}
	return false, nil
}
