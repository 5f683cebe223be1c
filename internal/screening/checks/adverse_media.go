package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/models"
)

const (
	FlagAdverseMedia = "adverse media findings"

	DefaultStalenessYears = 5
)

type adverseMediaAnswer struct {
	AdverseFindings *bool    `json:"adverse_findings"`
	Reasons         []string `json:"reasons"`
}

// AdverseMediaCheck asks the extractor for severe, recent, material news
// about the vendor. Unlike the other checks its failures are returned to
// the caller instead of being folded into the result.
type AdverseMediaCheck struct {
	extractor      Extractor
	stalenessYears int
}

func NewAdverseMediaCheck(ext Extractor, stalenessYears int) *AdverseMediaCheck {
	if stalenessYears <= 0 {
		stalenessYears = DefaultStalenessYears
	}
	return &AdverseMediaCheck{extractor: ext, stalenessYears: stalenessYears}
}

func (c *AdverseMediaCheck) Stage() models.StageID { return models.StageAdverseMedia }

func (c *AdverseMediaCheck) Run(ctx context.Context, in Input) (models.CheckResult, error) {
	v := in.Vendor
	raw, err := c.extractor.Analyze(ctx, adverseMediaPrompt(v.Name, v.Address.Formatted(), v.Website, c.stalenessYears))
	if err != nil {
		return models.CheckResult{}, fmt.Errorf("adverse media analysis: %w", err)
	}
	a, err := extractor.Decode[adverseMediaAnswer](raw)
	if err != nil {
		return models.CheckResult{}, fmt.Errorf("adverse media analysis: %w", err)
	}
	if a.AdverseFindings == nil {
		return models.CheckResult{}, fmt.Errorf("adverse media analysis: %w",
			&extractor.ParseError{Raw: string(raw), Err: errors.New("missing adverse_findings")})
	}
	if !*a.AdverseFindings {
		return models.Pass(c.Stage(), ""), nil
	}

	var flags []string
	for _, r := range a.Reasons {
		if r = strings.TrimSpace(r); r != "" {
			flags = append(flags, r)
		}
	}
	if len(flags) == 0 {
		flags = []string{FlagAdverseMedia}
	}
	return models.Flagged(c.Stage(), flags...), nil
}

// TimeoutResult surfaces an abandoned analysis like any other failure.
func (c *AdverseMediaCheck) TimeoutResult(_ context.Context, _ Input, cause error) (models.CheckResult, error) {
	err := fmt.Errorf("adverse media analysis: %w", cause)
	return models.Failed(c.Stage(), err.Error(), err), err
}
