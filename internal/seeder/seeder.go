// Package seeder loads demo vendors and accounts into an empty store so the
// server and CLI can be exercised without a database.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
)

// Store defines methods for seeding vendor records
type Store interface {
	SaveVendor(ctx context.Context, v *models.Vendor) error
	SaveAccount(ctx context.Context, a *models.Account) error
}

// Result lists the seeded identifiers in insertion order.
type Result struct {
	Accounts []id.AccountID
	Vendors  []id.VendorID
}

// Seeder populates a store with demo data
type Seeder struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// SeedAll inserts the demo accounts and vendors.
func (s *Seeder) SeedAll(ctx context.Context) (*Result, error) {
	s.logger.Info("seeding demo data...")

	accounts, err := s.seedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed accounts: %w", err)
	}
	vendors, err := s.seedVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed vendors: %w", err)
	}

	s.logger.Info("demo data seeded successfully",
		"accounts", len(accounts),
		"vendors", len(vendors),
	)
	for i, v := range vendors {
		s.logger.Info("demo vendor", "index", i, "vendor_id", v.String())
	}
	return &Result{Accounts: accounts, Vendors: vendors}, nil
}

func (s *Seeder) seedAccounts(ctx context.Context) ([]id.AccountID, error) {
	demoAccounts := []struct {
		name    string
		address models.Address
	}{
		{"Acme Corp", models.Address{Street: "200 Oak Ave", City: "Austin", State: "TX", PostalCode: "78702"}},
		{"Northwind Traders", models.Address{Street: "1 Harbor Way", City: "Seattle", State: "WA", PostalCode: "98101"}},
	}

	var ids []id.AccountID
	for _, a := range demoAccounts {
		account := &models.Account{ID: id.AccountID(uuid.New()), Name: a.name, Address: a.address}
		if err := s.store.SaveAccount(ctx, account); err != nil {
			return nil, err
		}
		ids = append(ids, account.ID)
	}
	return ids, nil
}

func (s *Seeder) seedVendors(ctx context.Context) ([]id.VendorID, error) {
	demoVendors := []struct {
		name    string
		address models.Address
		website string
		country string
	}{
		{"Acme Corp", models.Address{Street: "100 Main St", City: "Austin", State: "TX", PostalCode: "78701"}, "https://acme.example", "US"},
		{"Contoso Equipment Leasing", models.Address{Street: "1 Harbor Way", City: "Seattle", State: "WA", PostalCode: "98101"}, "", "US"},
		{"Maple Freight Ltd", models.Address{Street: "55 King St W", City: "Toronto", State: "ON", PostalCode: "M5K 1A1"}, "https://maplefreight.example", "CA"},
	}

	var ids []id.VendorID
	for _, v := range demoVendors {
		vendor := &models.Vendor{
			ID:      id.VendorID(uuid.New()),
			Name:    v.name,
			Address: v.address,
			Website: v.website,
			Country: v.country,
		}
		if err := s.store.SaveVendor(ctx, vendor); err != nil {
			return nil, err
		}
		ids = append(ids, vendor.ID)
	}
	return ids, nil
}
