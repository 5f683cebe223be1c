package cache

import (
	"context"
	"sync"
	"time"

	"quickfi/internal/screening/models"
)

type memoryEntry struct {
	resp     models.RegistryResponse
	storedAt time.Time
}

// MemoryStore keeps responses in process with TTL eviction on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Find(_ context.Context, key string) (*models.RegistryResponse, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(entry.storedAt) >= s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	resp := entry.resp
	resp.Companies = append([]models.RegistryMatch(nil), entry.resp.Companies...)
	return &resp, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, resp *models.RegistryResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *resp
	stored.Companies = append([]models.RegistryMatch(nil), resp.Companies...)
	s.entries[key] = memoryEntry{resp: stored, storedAt: s.now()}
	return nil
}
