package checks

import (
	"context"
	"log/slog"
	"strings"

	"quickfi/internal/screening/models"
)

const (
	FlagNoRegistryCompany         = "no company found in registry"
	FlagMultipleRegistryCompanies = "multiple companies found in registry"

	ReasonRegistryCallFailed = "registry API call failed"
	EvidenceSingleCompany    = "Single company found in DNB database"
)

// RegistryCheck searches the national business registry for the vendor.
type RegistryCheck struct {
	api       RegistryAPI
	cache     CacheUpdater
	countries map[string]struct{}
	logger    *slog.Logger
}

// NewRegistryCheck sends the vendor's country code only for the listed jurisdictions.
func NewRegistryCheck(api RegistryAPI, cache CacheUpdater, countries []string, logger *slog.Logger) *RegistryCheck {
	set := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return &RegistryCheck{api: api, cache: cache, countries: set, logger: loggerOrDefault(logger)}
}

func (c *RegistryCheck) Stage() models.StageID { return models.StageRegistry }

func (c *RegistryCheck) Run(ctx context.Context, in Input) (models.CheckResult, error) {
	v := in.Vendor
	q := models.RegistryQuery{Name: v.Name, City: v.Address.City, State: v.Address.State}
	if _, ok := c.countries[strings.ToUpper(v.Country)]; ok {
		q.Country = strings.ToUpper(v.Country)
	}

	resp, err := c.api.Search(ctx, q)
	if err != nil {
		return models.Failed(c.Stage(), ReasonRegistryCallFailed, err), nil
	}
	if !resp.Success {
		return models.Failed(c.Stage(), ReasonRegistryCallFailed, nil), nil
	}

	switch len(resp.Companies) {
	case 0:
		return models.Flagged(c.Stage(), FlagNoRegistryCompany), nil
	case 1:
		match := resp.Companies[0]
		if ok, err := c.cache.UpdateRegistryInfo(ctx, v.ID, match.YearsInBusiness, match.Active()); err != nil || !ok {
			c.logger.WarnContext(ctx, "registry info not cached",
				"vendor_id", v.ID.String(), "updated", ok, "error", err)
		}
		res := models.Pass(c.Stage(), EvidenceSingleCompany)
		res.Registry = &match
		return res, nil
	default:
		return models.Flagged(c.Stage(), FlagMultipleRegistryCompanies), nil
	}
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
