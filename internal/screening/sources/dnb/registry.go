package dnb

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
)

type searchRequest struct {
	SearchTerm      string `json:"searchTerm"`
	AddressLocality string `json:"addressLocality,omitempty"`
	AddressRegion   string `json:"addressRegion,omitempty"`
	CountryISO      string `json:"countryISOAlpha2Code,omitempty"`
}

type searchResponse struct {
	IsSuccess    bool         `json:"isSuccess"`
	DNBCompanies []dnbCompany `json:"dnbCompanies"`
}

type dnbCompany struct {
	PrimaryName     string   `json:"primaryName"`
	YearsInBusiness *float64 `json:"yearsInBusiness"`
	OperatingStatus struct {
		Description string `json:"description"`
	} `json:"operatingStatus"`
	PrimaryAddress struct {
		AddressRegion struct {
			AbbreviatedName string `json:"abbreviatedName"`
		} `json:"addressRegion"`
	} `json:"primaryAddress"`
}

func (c dnbCompany) toMatch() models.RegistryMatch {
	return models.RegistryMatch{
		Name:            c.PrimaryName,
		State:           c.PrimaryAddress.AddressRegion.AbbreviatedName,
		YearsInBusiness: c.YearsInBusiness,
		OperatingStatus: c.OperatingStatus.Description,
	}
}

// Client searches the registry with a bearer token from a TokenManager.
type Client struct {
	baseURL string
	tokens  *TokenManager
	client  sources.HTTPDoer
	logger  *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(c sources.HTTPDoer) ClientOption {
	return func(cl *Client) { cl.client = c }
}

func WithLogger(l *slog.Logger) ClientOption {
	return func(cl *Client) { cl.logger = l }
}

// NewClient builds a registry search client.
func NewClient(baseURL string, tokens *TokenManager, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs a company search. A 401 invalidates the cached token; the
// request itself is not repeated.
func (c *Client) Search(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(searchRequest{
		SearchTerm:      q.Name,
		AddressLocality: q.City,
		AddressRegion:   q.State,
		CountryISO:      q.Country,
	})
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search/criteria", bytes.NewReader(payload))
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorInternal, sourceName, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, sources.TransportError(ctx, sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
		c.logger.WarnContext(ctx, "registry rejected token, cache invalidated")
	}
	if se := sources.StatusError(sourceName, resp.StatusCode); se != nil {
		return nil, se
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to read response", err)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, sources.NewSourceError(sources.ErrorBadData, sourceName, "failed to decode response", err)
	}

	out := &models.RegistryResponse{Success: sr.IsSuccess}
	for _, company := range sr.DNBCompanies {
		out.Companies = append(out.Companies, company.toMatch())
	}
	return out, nil
}
