package checks

import (
	"context"

	"quickfi/internal/screening/models"
)

const (
	FlagNameMatch    = "name match"
	FlagAddressMatch = "address match"
)

// IdentityCheck flags a vendor that looks like the borrowing account itself.
// Comparison is exact and case-sensitive.
type IdentityCheck struct{}

func NewIdentityCheck() *IdentityCheck { return &IdentityCheck{} }

func (c *IdentityCheck) Stage() models.StageID { return models.StageIdentity }

func (c *IdentityCheck) Run(_ context.Context, in Input) (models.CheckResult, error) {
	if in.Vendor == nil || in.Account == nil {
		return models.Failed(c.Stage(), "vendor and account are required", nil), nil
	}

	var flags []string
	if in.Vendor.Name == in.Account.Name {
		flags = append(flags, FlagNameMatch)
	}
	if in.Vendor.Address.Formatted() == in.Account.Address.Formatted() {
		flags = append(flags, FlagAddressMatch)
	}
	return models.Flagged(c.Stage(), flags...), nil
}
