// Package checks implements the vendor verification stages. Each check turns
// one external judgment into a CheckResult; persisting flags is the runner's job.
package checks

import (
	"context"
	"encoding/json"

	"quickfi/internal/screening/models"
	vmodels "quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
)

// Input is what a stage sees of the run.
type Input struct {
	Vendor  *vmodels.Vendor
	Account *vmodels.Account

	// Registry is the registry stage's single match, when that stage ran
	// first in the same run and passed.
	Registry *models.RegistryMatch
}

// Check is one verification stage. A returned error means the failure must
// be surfaced to the caller; ordinary source failures become ERROR results.
type Check interface {
	Stage() models.StageID
	Run(ctx context.Context, in Input) (models.CheckResult, error)
}

// OverrunPolicy is implemented by checks that decide their own result when the
// runner abandons them at the stage or run deadline. ctx is no longer bound to
// that deadline. A returned error is surfaced like one returned from Run.
type OverrunPolicy interface {
	TimeoutResult(ctx context.Context, in Input, cause error) (models.CheckResult, error)
}

// CacheUpdater writes the cached registry and sanctions fields on a vendor.
type CacheUpdater interface {
	UpdateRegistryInfo(ctx context.Context, vendorID id.VendorID, years *float64, active bool) (bool, error)
	UpdateSanctionsInfo(ctx context.Context, vendorID id.VendorID, hit bool) (bool, error)
}

type RegistryAPI interface {
	Search(ctx context.Context, q models.RegistryQuery) (*models.RegistryResponse, error)
}

type StateLinks interface {
	Resolve(ctx context.Context, state string) (string, bool, error)
}

type Scraper interface {
	Fetch(ctx context.Context, url, query string) (string, error)
}

type Extractor interface {
	Analyze(ctx context.Context, prompt string) (json.RawMessage, error)
}

type SanctionsSearch interface {
	Search(ctx context.Context, name string, minScore int) (bool, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.GeocodeResult, error)
}
