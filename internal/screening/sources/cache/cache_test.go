package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quickfi/internal/screening/models"
	"quickfi/pkg/platform/circuit"
)

type stubSearcher struct {
	calls int
	resp  *models.RegistryResponse
	err   error
}

func (s *stubSearcher) Search(_ context.Context, _ models.RegistryQuery) (*models.RegistryResponse, error) {
	s.calls++
	return s.resp, s.err
}

type failingStore struct {
	finds int
}

func (f *failingStore) Find(context.Context, string) (*models.RegistryResponse, error) {
	f.finds++
	return nil, errors.New("redis: connection refused")
}

func (f *failingStore) Save(context.Context, string, *models.RegistryResponse) error {
	return errors.New("redis: connection refused")
}

type RegistryCacheSuite struct {
	suite.Suite
	searcher *stubSearcher
	query    models.RegistryQuery
}

func TestRegistryCacheSuite(t *testing.T) {
	suite.Run(t, new(RegistryCacheSuite))
}

func (s *RegistryCacheSuite) SetupTest() {
	s.searcher = &stubSearcher{resp: &models.RegistryResponse{
		Success:   true,
		Companies: []models.RegistryMatch{{Name: "ACME CORP", State: "TX"}},
	}}
	s.query = models.RegistryQuery{Name: "Acme  Corp", City: "Austin", State: "TX", Country: "US"}
}

func (s *RegistryCacheSuite) TestReadThrough() {
	r := NewRegistry(s.searcher, NewMemoryStore(time.Hour))
	ctx := context.Background()

	first, err := r.Search(ctx, s.query)
	s.Require().NoError(err)
	second, err := r.Search(ctx, models.RegistryQuery{Name: "acme corp", City: "AUSTIN", State: "tx", Country: "us"})
	s.Require().NoError(err)

	s.Equal(1, s.searcher.calls)
	s.Equal(first.Companies, second.Companies)
}

func (s *RegistryCacheSuite) TestUnsuccessfulResponsesAreNotCached() {
	s.searcher.resp = &models.RegistryResponse{Success: false}
	r := NewRegistry(s.searcher, NewMemoryStore(time.Hour))

	for range 2 {
		_, err := r.Search(context.Background(), s.query)
		s.Require().NoError(err)
	}
	s.Equal(2, s.searcher.calls)
}

func (s *RegistryCacheSuite) TestSearchErrorPassesThrough() {
	s.searcher.err = errors.New("registry down")
	s.searcher.resp = nil
	r := NewRegistry(s.searcher, NewMemoryStore(time.Hour))

	_, err := r.Search(context.Background(), s.query)
	s.EqualError(err, "registry down")
}

// Invariant: cache outages never fail a search; the breaker stops reads.
func (s *RegistryCacheSuite) TestBrokenStoreFallsBackToSource() {
	store := &failingStore{}
	r := NewRegistry(s.searcher, store, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))))

	for range 3 {
		resp, err := r.Search(context.Background(), s.query)
		s.Require().NoError(err)
		s.True(resp.Success)
	}
	s.Equal(3, s.searcher.calls)
	s.Equal(1, store.finds, "reads stop once the breaker opens")
}

func (s *RegistryCacheSuite) TestMemoryStoreExpires() {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s.Require().NoError(store.Save(ctx, "k", s.searcher.resp))
	_, err := store.Find(ctx, "k")
	s.Require().NoError(err)

	now = now.Add(time.Minute)
	_, err = store.Find(ctx, "k")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RegistryCacheSuite) TestKey() {
	s.Equal("acme corp|austin|tx|us", Key(s.query))
}
