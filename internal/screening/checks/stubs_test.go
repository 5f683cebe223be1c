package checks

import (
	"context"
	"encoding/json"
	"sync"

	"quickfi/internal/screening/models"
	vmodels "quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"

	"github.com/google/uuid"
)

type stubRegistry struct {
	searchFn func(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error)
	queries  []models.RegistryQuery
}

func (s *stubRegistry) Search(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error) {
	s.queries = append(s.queries, q)
	return s.searchFn(ctx, q)
}

type stubLinks struct {
	links map[string]string
	err   error
}

func (s stubLinks) Resolve(_ context.Context, state string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	u, ok := s.links[state]
	return u, ok, nil
}

type stubScraper struct {
	fetchFn func(ctx context.Context, url, query string) (string, error)
}

func (s stubScraper) Fetch(ctx context.Context, url, query string) (string, error) {
	return s.fetchFn(ctx, url, query)
}

type stubExtractor struct {
	analyzeFn func(ctx context.Context, prompt string) (json.RawMessage, error)
	prompts   []string
}

func (s *stubExtractor) Analyze(ctx context.Context, prompt string) (json.RawMessage, error) {
	s.prompts = append(s.prompts, prompt)
	return s.analyzeFn(ctx, prompt)
}

func extractorReturning(body string) *stubExtractor {
	return &stubExtractor{analyzeFn: func(context.Context, string) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}}
}

func extractorFailing(err error) *stubExtractor {
	return &stubExtractor{analyzeFn: func(context.Context, string) (json.RawMessage, error) {
		return nil, err
	}}
}

type stubSanctions struct {
	searchFn func(ctx context.Context, name string, minScore int) (bool, error)
}

func (s stubSanctions) Search(ctx context.Context, name string, minScore int) (bool, error) {
	return s.searchFn(ctx, name, minScore)
}

type stubGeocoder struct {
	result *models.GeocodeResult
	err    error
}

func (s stubGeocoder) Geocode(context.Context, string) (*models.GeocodeResult, error) {
	return s.result, s.err
}

type registryUpdate struct {
	years  *float64
	active bool
}

type recordingCache struct {
	mu        sync.Mutex
	registry  []registryUpdate
	sanctions []bool
}

func (c *recordingCache) UpdateRegistryInfo(_ context.Context, _ id.VendorID, years *float64, active bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry = append(c.registry, registryUpdate{years: years, active: active})
	return true, nil
}

func (c *recordingCache) UpdateSanctionsInfo(_ context.Context, _ id.VendorID, hit bool) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sanctions = append(c.sanctions, hit)
	return true, nil
}

func testVendor() *vmodels.Vendor {
	return &vmodels.Vendor{
		ID:      id.VendorID(uuid.New()),
		Name:    "Acme Corp",
		Address: vmodels.Address{Street: "100 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
		Website: "https://acme.example",
		Country: "US",
	}
}

func ptr[T any](v T) *T { return &v }
