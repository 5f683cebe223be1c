package models

import (
	"fmt"
	"time"

	id "quickfi/pkg/domain"
)

// Address is a postal address. Formatted is the canonical comparison form.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Formatted renders "Street, City, State, PostalCode".
func (a Address) Formatted() string {
	return fmt.Sprintf("%s, %s, %s, %s", a.Street, a.City, a.State, a.PostalCode)
}

// Vendor is a counterparty under screening. Flags is append-only and
// insertion ordered; the flag count is always len(Flags).
type Vendor struct {
	ID          id.VendorID  `json:"id"`
	Name        string       `json:"name"`
	Address     Address      `json:"address"`
	Website     string       `json:"website,omitempty"`
	Country     string       `json:"country"`
	Flags       []FlagRecord `json:"flags"`
	DateScanned *time.Time   `json:"date_scanned,omitempty"`

	RegistryYearsInBusiness *float64 `json:"registry_years_in_business,omitempty"`
	RegistryActive          *bool    `json:"registry_active,omitempty"`
	SanctionsHit            *bool    `json:"sanctions_hit,omitempty"`
}

// FlagCount is derived, never stored.
func (v *Vendor) FlagCount() int {
	return len(v.Flags)
}

// Account is the borrowing account a vendor is compared against. Read-only.
type Account struct {
	ID      id.AccountID `json:"id"`
	Name    string       `json:"name"`
	Address Address      `json:"address"`
}

// FlagRecord is one persisted flag attributed to the stage that raised it.
type FlagRecord struct {
	Text      string    `json:"text"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

// FlagSummary is the read view of a vendor's flags.
type FlagSummary struct {
	VendorID id.VendorID `json:"vendor_id"`
	Flags    []string    `json:"flags"`
	Count    int         `json:"count"`
}

// NewFlagSummary builds the summary so Count always equals len(Flags).
func NewFlagSummary(vendorID id.VendorID, records []FlagRecord) FlagSummary {
	texts := make([]string, 0, len(records))
	for _, r := range records {
		texts = append(texts, r.Text)
	}
	return FlagSummary{VendorID: vendorID, Flags: texts, Count: len(texts)}
}

// DueDiligence pairs an account and a vendor for manual review.
type DueDiligence struct {
	AccountName    string `json:"account_name"`
	AccountAddress string `json:"account_address"`
	VendorName     string `json:"vendor_name"`
	VendorAddress  string `json:"vendor_address"`
	VendorWebsite  string `json:"vendor_website,omitempty"`
}
