package dnb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
)

func newRegistryServer(t *testing.T, search http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/token", func(w http.ResponseWriter, _ *http.Request) {
		n := tokenCalls.Add(1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expiresIn":3600}`, n)
	})
	mux.HandleFunc("/v1/search/criteria", search)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenCalls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, NewTokenManager(srv.URL+"/v2/token", "id", "secret"), 0)
}

func TestSearchMapsCompanies(t *testing.T) {
	srv, _ := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Acme Corp", req.SearchTerm)
		assert.Equal(t, "US", req.CountryISO)

		fmt.Fprint(w, `{"isSuccess":true,"dnbCompanies":[{
			"primaryName":"ACME CORP",
			"yearsInBusiness":12,
			"operatingStatus":{"description":"Active"},
			"primaryAddress":{"addressRegion":{"abbreviatedName":"TX"}}
		}]}`)
	})

	resp, err := newTestClient(srv).Search(context.Background(), models.RegistryQuery{
		Name: "Acme Corp", City: "Austin", State: "TX", Country: "US",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Len(t, resp.Companies, 1)
	match := resp.Companies[0]
	assert.Equal(t, "TX", match.State)
	assert.Equal(t, 12.0, *match.YearsInBusiness)
	assert.True(t, match.Active())
}

func TestSearchUnsuccessfulResponse(t *testing.T) {
	srv, _ := newRegistryServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"isSuccess":false}`)
	})
	resp, err := newTestClient(srv).Search(context.Background(), models.RegistryQuery{Name: "Acme"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Empty(t, resp.Companies)
}

// Invariant: a 401 from the search invalidates the cached token without retrying.
func TestSearchUnauthorizedInvalidatesToken(t *testing.T) {
	var searches atomic.Int32
	srv, tokenCalls := newRegistryServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if searches.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"isSuccess":true,"dnbCompanies":[]}`)
	})
	c := newTestClient(srv)

	_, err := c.Search(context.Background(), models.RegistryQuery{Name: "Acme"})
	require.Error(t, err)
	assert.Equal(t, sources.ErrorAuthentication, sources.CategoryOf(err))
	assert.Equal(t, int32(1), searches.Load())

	_, err = c.Search(context.Background(), models.RegistryQuery{Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestSearchMalformedBody(t *testing.T) {
	srv, _ := newRegistryServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"isSuccess":`)
	})
	_, err := newTestClient(srv).Search(context.Background(), models.RegistryQuery{Name: "Acme"})
	assert.Equal(t, sources.ErrorBadData, sources.CategoryOf(err))
}
