package checks

import (
	"context"
	"fmt"
	"log/slog"

	"quickfi/internal/screening/models"
)

const (
	FlagSanctioned = "found on sanctions list"

	DefaultSanctionsMinScore = 80
)

// SanctionsCheck fails closed: a search that cannot complete is treated as a hit.
type SanctionsCheck struct {
	search   SanctionsSearch
	cache    CacheUpdater
	minScore int
	logger   *slog.Logger
}

func NewSanctionsCheck(search SanctionsSearch, cache CacheUpdater, minScore int, logger *slog.Logger) *SanctionsCheck {
	if minScore <= 0 {
		minScore = DefaultSanctionsMinScore
	}
	return &SanctionsCheck{search: search, cache: cache, minScore: minScore, logger: loggerOrDefault(logger)}
}

func (c *SanctionsCheck) Stage() models.StageID { return models.StageSanctions }

func (c *SanctionsCheck) Run(ctx context.Context, in Input) (models.CheckResult, error) {
	v := in.Vendor
	hit, err := c.search.Search(ctx, v.Name, c.minScore)

	var res models.CheckResult
	switch {
	case err != nil:
		hit = true
		res = models.Flagged(c.Stage(), FlagSanctioned)
		res.Evidence = fmt.Sprintf("sanctions search failed: %v", err)
		res.Err = err
	case hit:
		res = models.Flagged(c.Stage(), FlagSanctioned)
	default:
		res = models.Pass(c.Stage(), "")
	}

	c.recordHit(ctx, in, hit)
	return res, nil
}

// TimeoutResult treats a search the runner gave up on as a hit.
func (c *SanctionsCheck) TimeoutResult(ctx context.Context, in Input, cause error) (models.CheckResult, error) {
	res := models.Flagged(c.Stage(), FlagSanctioned)
	res.Evidence = fmt.Sprintf("sanctions search did not complete: %v", cause)
	res.Err = cause
	c.recordHit(ctx, in, true)
	return res, nil
}

func (c *SanctionsCheck) recordHit(ctx context.Context, in Input, hit bool) {
	v := in.Vendor
	if ok, err := c.cache.UpdateSanctionsInfo(ctx, v.ID, hit); err != nil || !ok {
		c.logger.WarnContext(ctx, "sanctions info not cached",
			"vendor_id", v.ID.String(), "updated", ok, "error", err)
	}
}
