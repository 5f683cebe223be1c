//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quickfi/internal/vendors/models"
	"quickfi/internal/vendors/store"
	id "quickfi/pkg/domain"
	"quickfi/pkg/testutil"
	"quickfi/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	store    *store.PostgresStore
	vendorID id.VendorID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateAll(ctx))
	s.vendorID = id.VendorID(uuid.New())
	s.Require().NoError(s.store.SaveVendor(ctx, &models.Vendor{
		ID:      s.vendorID,
		Name:    "Acme Corp",
		Address: models.Address{Street: "100 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
		Country: "US",
	}))
}

// Invariant: append then read reflects the new flag at the end; count equals list length.
func (s *PostgresStoreSuite) TestAppendRoundTrip() {
	ctx := context.Background()
	for _, text := range []string{"name match", "no company found in registry"} {
		ok, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: text, Stage: "identity"})
		s.Require().NoError(err)
		s.True(ok)
	}

	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal([]string{"name match", "no company found in registry"}, summary.Flags)
	s.Equal(2, summary.Count)

	v, err := s.store.Vendor(ctx, s.vendorID)
	s.Require().NoError(err)
	s.NotNil(v.DateScanned)
	s.Len(v.Flags, 2)
}

// Invariant: row locking serializes concurrent appends; none are lost.
func (s *PostgresStoreSuite) TestConcurrentAppends() {
	ctx := context.Background()
	result := testutil.RunConcurrent(20, func(i int) error {
		_, err := s.store.AppendFlag(ctx, s.vendorID, models.FlagRecord{Text: fmt.Sprintf("flag %d", i), Stage: "web_presence"})
		return err
	})
	s.Equal(int32(20), result.Successes)

	summary, err := s.store.Flags(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal(20, summary.Count)
}

func (s *PostgresStoreSuite) TestMissingVendor() {
	ctx := context.Background()
	ok, err := s.store.AppendFlag(ctx, id.VendorID(uuid.New()), models.FlagRecord{Text: "x", Stage: "identity"})
	s.NoError(err)
	s.False(ok)

	_, err = s.store.Vendor(ctx, id.VendorID(uuid.New()))
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCachedFields() {
	ctx := context.Background()
	years := 3.0

	ok, err := s.store.UpdateRegistryInfo(ctx, s.vendorID, &years, false)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.store.UpdateSanctionsInfo(ctx, s.vendorID, true)
	s.Require().NoError(err)
	s.True(ok)
	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	ok, err = s.store.MarkScanned(ctx, s.vendorID, at)
	s.Require().NoError(err)
	s.True(ok)

	v, err := s.store.Vendor(ctx, s.vendorID)
	s.Require().NoError(err)
	s.Equal(3.0, *v.RegistryYearsInBusiness)
	s.False(*v.RegistryActive)
	s.True(*v.SanctionsHit)
	s.True(at.Equal(*v.DateScanned))
}
