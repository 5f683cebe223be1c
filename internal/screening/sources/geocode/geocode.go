// Package geocode resolves postal addresses through a Google-style geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
)

const sourceName = "geocoder"

type apiResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Geometry         struct {
		LocationType string `json:"location_type"`
	} `json:"geometry"`
}

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
		timeout = 10 * time.Second
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

// Geocode returns the best result for address, or nil when the address
// does not resolve.
func (c *Client) Geocode(ctx context.Context, address string) (*models.GeocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return nil, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to read response", err)
	}
	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to decode response", err)
	}

	switch ar.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return nil, sources.NewSourceError(sources.ErrorRateLimited, sourceName, ar.Status, nil)
	case "REQUEST_DENIED":
		return nil, sources.NewSourceError(sources.ErrorAuthentication, sourceName, ar.ErrorMessage, nil)
	case "INVALID_REQUEST":
		return nil, sources.NewSourceError(sources.ErrorContractMismatch, sourceName, ar.ErrorMessage, nil)
	default:
		return nil, sources.NewSourceError(sources.ErrorProviderOutage, sourceName, "status "+ar.Status, nil)
	}
	if len(ar.Results) == 0 {
		return nil, nil
	}

	best := ar.Results[0]
	return &models.GeocodeResult{
		FormattedAddress: best.FormattedAddress,
		Precision:        best.Geometry.LocationType,
		PlaceTypes:       best.Types,
	}, nil
}
