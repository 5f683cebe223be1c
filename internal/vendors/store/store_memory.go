package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
	psync "quickfi/pkg/platform/sync"
)

// InMemoryStore keeps vendors and accounts in maps. It backs tests and the
// CLI's dry-run mode.
type InMemoryStore struct {
	mu       sync.RWMutex
	vendors  map[id.VendorID]*models.Vendor
	accounts map[id.AccountID]*models.Account

	appendLock *psync.ShardedMutex
	now        func() time.Time
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	o := applyOptions(opts)
	return &InMemoryStore{
		vendors:    make(map[id.VendorID]*models.Vendor),
		accounts:   make(map[id.AccountID]*models.Account),
		appendLock: psync.NewShardedMutex(),
		now:        o.now,
	}
}

// SaveVendor inserts or replaces a vendor record.
func (s *InMemoryStore) SaveVendor(_ context.Context, v *models.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[v.ID] = cloneVendor(v)
	return nil
}

func (s *InMemoryStore) SaveAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

// DeleteVendor removes a vendor; later appends for it report false.
func (s *InMemoryStore) DeleteVendor(_ context.Context, vendorID id.VendorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vendors, vendorID)
	return nil
}

func (s *InMemoryStore) Vendor(_ context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVendor(v), nil
}

func (s *InMemoryStore) Account(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// AppendFlag reads the current flag list, appends flag, and writes the list
// back together with a new scan date. The read-modify-write is serialized per
// vendor. Returns false when the vendor no longer exists.
func (s *InMemoryStore) AppendFlag(_ context.Context, vendorID id.VendorID, flag models.FlagRecord) (bool, error) {
	key := vendorID.String()
	s.appendLock.Lock(key)
	defer s.appendLock.Unlock(key)

	s.mu.RLock()
	v, ok := s.vendors[vendorID]
	var current []models.FlagRecord
	if ok {
		current = slices.Clone(v.Flags)
	}
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	now := s.now()
	if flag.CreatedAt.IsZero() {
		flag.CreatedAt = now
	}
	updated := append(current, flag)

	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok = s.vendors[vendorID]
	if !ok {
		return false, nil
	}
	v.Flags = updated
	v.DateScanned = &now
	return true, nil
}

func (s *InMemoryStore) Flags(_ context.Context, vendorID id.VendorID) (models.FlagSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return models.FlagSummary{}, ErrNotFound
	}
	return models.NewFlagSummary(vendorID, v.Flags), nil
}

func (s *InMemoryStore) UpdateRegistryInfo(_ context.Context, vendorID id.VendorID, years *float64, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return false, nil
	}
	if years != nil {
		y := *years
		v.RegistryYearsInBusiness = &y
	} else {
		v.RegistryYearsInBusiness = nil
	}
	v.RegistryActive = &active
	return true, nil
}

func (s *InMemoryStore) UpdateSanctionsInfo(_ context.Context, vendorID id.VendorID, hit bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return false, nil
	}
	v.SanctionsHit = &hit
	return true, nil
}

// MarkScanned records when the last stage of a run completed.
func (s *InMemoryStore) MarkScanned(_ context.Context, vendorID id.VendorID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return false, nil
	}
	v.DateScanned = &at
	return true, nil
}

func cloneVendor(v *models.Vendor) *models.Vendor {
	cp := *v
	cp.Flags = slices.Clone(v.Flags)
	if v.DateScanned != nil {
		t := *v.DateScanned
		cp.DateScanned = &t
	}
	if v.RegistryYearsInBusiness != nil {
		y := *v.RegistryYearsInBusiness
		cp.RegistryYearsInBusiness = &y
	}
	if v.RegistryActive != nil {
		a := *v.RegistryActive
		cp.RegistryActive = &a
	}
	if v.SanctionsHit != nil {
		h := *v.SanctionsHit
		cp.SanctionsHit = &h
	}
	return &cp
}
