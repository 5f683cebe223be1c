// Package cache fronts the registry search with a TTL cache so repeated
// screenings of the same vendor do not spend paid registry calls.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"quickfi/internal/screening/metrics"
	"quickfi/internal/screening/models"
	"quickfi/internal/sentinel"
	"quickfi/pkg/platform/circuit"
)

const cacheName = "registry"

// ErrNotFound is returned by a Store on a cache miss.
var ErrNotFound = sentinel.ErrNotFound

// Store holds registry responses by query key.
type Store interface {
	Find(ctx context.Context, key string) (*models.RegistryResponse, error)
	Save(ctx context.Context, key string, resp *models.RegistryResponse) error
}

// Searcher is the registry search being cached.
type Searcher interface {
	Search(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error)
}

// Registry is a read-through cache over a Searcher. Only successful
// responses are stored. Cache failures never fail a search: the breaker
// stops cache reads after repeated failures while writes keep probing it.
type Registry struct {
	next    Searcher
	store   Store
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Registry)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Registry) { r.breaker = b }
}

func NewRegistry(next Searcher, store Store, opts ...Option) *Registry {
	r := &Registry{
		next:   next,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("registry-cache", circuit.WithStateChange(func(name string, to circuit.State) {
			r.logger.Warn("cache circuit changed state", "breaker", name, "state", to.String())
		}))
	}
	return r
}

func (r *Registry) Search(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error) {
	key := Key(q)

	if !r.breaker.IsOpen() {
		cached, err := r.store.Find(ctx, key)
		switch {
		case err == nil:
			r.breaker.Record(nil)
			r.metrics.RecordCacheHit(cacheName)
			return cached, nil
		case errors.Is(err, ErrNotFound):
			r.breaker.Record(nil)
			r.metrics.RecordCacheMiss(cacheName)
		default:
			r.breaker.Record(err)
			r.logger.WarnContext(ctx, "registry cache read failed", "error", err)
		}
	}

	resp, err := r.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if resp.Success {
		err := r.store.Save(ctx, key, resp)
		r.breaker.Record(err)
		if err != nil {
			r.logger.WarnContext(ctx, "registry cache write failed", "error", err)
		}
	}
	return resp, nil
}

// Key normalizes a query into its cache key.
func Key(q models.RegistryQuery) string {
	parts := []string{q.Name, q.City, q.State, q.Country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}
