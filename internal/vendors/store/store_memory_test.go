package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
	"quickfi/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store    *InMemoryStore
	now      time.Time
	vendorID id.VendorID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore(WithClock(func() time.Time { return s.now }))
	s.vendorID = id.VendorID(uuid.New())
	s.Require().NoError(s.store.SaveVendor(context.Background(), &models.Vendor{
		ID:      s.vendorID,
		Name:    "Acme Corp",
		Address: models.Address{Street: "100 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
		Country: "US",
	}))
}

// Invariant: append followed by get shows the new flag last, and count equals list length.
func (s *InMemoryStoreSuite) TestAppendThenFlagsRoundTrip() {
	ctx := context.Background()

	ok, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: "name match", Stage: "identity"})
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: "found on sanctions list", Stage: "sanctions"})
	s.Require().NoError(err)
	s.True(ok)

	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal([]string{"name match", "found on sanctions list"}, summary.Flags)
	s.Equal(len(summary.Flags), summary.Count)

	v, err := s.store.Vendor(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Require().NotNil(v.DateScanned)
	s.Equal(s.now, *v.DateScanned)
	s.Equal("sanctions", v.Flags[1].Stage)
	s.Equal(s.now, v.Flags[1].CreatedAt)
}

// Invariant: identical flag text is appended again, never deduplicated.
func (s *InMemoryStoreSuite) TestAppendKeepsDuplicates() {
	ctx := context.Background()
	for range 2 {
		_, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: "name match", Stage: "identity"})
		s.Require().NoError(err)
	}
	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal(2, summary.Count)
}

func (s *InMemoryStoreSuite) TestAppendMissingVendor() {
	ctx := context.Background()

	s.Run("unknown vendor returns false", func() {
		ok, err := s.store.AppendFlag(ctx, id.VendorID(uuid.New()), models.FlagRecord{Text: "x"})
		s.NoError(err)
		s.False(ok)
	})

	s.Run("deleted vendor returns false", func() {
		s.Require().NoError(s.store.DeleteVendor(ctx, s.vendorID))
		ok, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: "x"})
		s.NoError(err)
		s.False(ok)

		_, err = s.store.Flags(ctx, s.vendorID)
		s.ErrorIs(err, ErrNotFound)
	})
}

// Invariant: concurrent appends for one vendor never lose updates.
func (s *InMemoryStoreSuite) TestConcurrentAppendsAreSerialized() {
	ctx := context.Background()
	result := testutil.RunConcurrent(50, func(i int) error {
		_, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: fmt.Sprintf("flag %d", i), Stage: "web_presence"})
		return err
	})
	s.Equal(int32(50), result.Successes)

	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal(50, summary.Count)
}

func (s *InMemoryStoreSuite) TestCachedFieldUpdates() {
	ctx := context.Background()
	years := 12.5

	ok, err := s.store.UpdateRegistryInfo(ctx, s.vendorID, &years, true)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.store.UpdateSanctionsInfo(ctx, s.vendorID, true)
	s.Require().NoError(err)
	s.True(ok)

	v, err := s.store.Vendor(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal(12.5, *v.RegistryYearsInBusiness)
	s.True(*v.RegistryActive)
	s.True(*v.SanctionsHit)

	s.Run("nil years clears the cached value", func() {
		_, err := s.store.UpdateRegistryInfo(ctx, s.vendorID, nil, false)
		s.Require().NoError(err)
		v, err := s.store.Vendor(ctx, s.vendorID)
		s.Require().NoError(err)
		s.Nil(v.RegistryYearsInBusiness)
		s.False(*v.RegistryActive)
	})

	s.Run("missing vendor", func() {
		ok, err := s.store.UpdateSanctionsInfo(ctx, id.VendorID(uuid.New()), false)
		s.NoError(err)
		s.False(ok)
	})
}

func (s *InMemoryStoreSuite) TestVendorReturnsCopy() {
	ctx := context.Background()
	v, err := s.store.Vendor(ctx, s.vendorID)
	s.Require().NoError(err)
	v.Flags = append(v.Flags, models.FlagRecord{Text: "tampered"})

	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Zero(summary.Count)
}

func (s *InMemoryStoreSuite) TestAccounts() {
	ctx := context.Background()
	accountID := id.AccountID(uuid.New())
	s.Require().NoError(s.store.SaveAccount(ctx, &models.Account{ID: accountID, Name: "Acme Corp"}))

	a, err := s.store.Account(ctx, accountID)
	s.Require().NoError(err)
	s.Equal("Acme Corp", a.Name)

	_, err = s.store.Account(ctx, id.AccountID(uuid.New()))
	s.ErrorIs(err, ErrNotFound)
}
