package checks

import (
	"context"
	"fmt"

	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/models"
)

const (
	FlagNotInStateRegistry = "not found in registry"

	ReasonNoStateURL          = "no registry URL for state"
	ReasonStateLookupFailed   = "registry lookup failed"
	ReasonStateResultsInvalid = "error parsing registry results"

	// DefaultMinYearsInBusiness is the age below which a registered vendor is flagged.
	DefaultMinYearsInBusiness = 5.0
)

type stateRegistryAnswer struct {
	Found            *bool    `json:"found"`
	RegistrationDate *string  `json:"registration_date"`
	YearsInBusiness  *float64 `json:"years_in_business"`
	Status           *string  `json:"status"`
	Active           *bool    `json:"active"`
}

// StateRegistryCheck reads the vendor's state business registry page and has
// the extractor judge registration, age and standing. Every condition is
// evaluated, so one answer can raise several flags.
type StateRegistryCheck struct {
	links     StateLinks
	scraper   Scraper
	extractor Extractor
	minYears  float64
}

func NewStateRegistryCheck(links StateLinks, scraper Scraper, ext Extractor) *StateRegistryCheck {
	return &StateRegistryCheck{links: links, scraper: scraper, extractor: ext, minYears: DefaultMinYearsInBusiness}
}

func (c *StateRegistryCheck) Stage() models.StageID { return models.StageStateRegistry }

func (c *StateRegistryCheck) Run(ctx context.Context, in Input) (models.CheckResult, error) {
	v := in.Vendor
	state := v.Address.State
	if in.Registry != nil && in.Registry.State != "" {
		state = in.Registry.State
	}

	url, ok, err := c.links.Resolve(ctx, state)
	if err != nil {
		return models.Failed(c.Stage(), ReasonStateLookupFailed, err), nil
	}
	if !ok {
		return models.Failed(c.Stage(), ReasonNoStateURL, fmt.Errorf("state %q has no registry url", state)), nil
	}

	page, err := c.scraper.Fetch(ctx, url, v.Name)
	if err != nil {
		return models.Failed(c.Stage(), ReasonStateLookupFailed, err), nil
	}

	raw, err := c.extractor.Analyze(ctx, stateRegistryPrompt(v.Name, state, page))
	if err != nil {
		if extractor.IsParseError(err) {
			return models.Failed(c.Stage(), ReasonStateResultsInvalid, err), nil
		}
		return models.Failed(c.Stage(), ReasonStateLookupFailed, err), nil
	}
	answer, err := extractor.Decode[stateRegistryAnswer](raw)
	if err != nil {
		return models.Failed(c.Stage(), ReasonStateResultsInvalid, err), nil
	}
	if answer.Found == nil {
		return models.Failed(c.Stage(), ReasonStateResultsInvalid, &extractor.ParseError{Raw: string(raw), Err: fmt.Errorf("missing found")}), nil
	}

	return models.Flagged(c.Stage(), c.evaluate(answer)...), nil
}

func (c *StateRegistryCheck) evaluate(a stateRegistryAnswer) []string {
	var flags []string
	if !*a.Found {
		flags = append(flags, FlagNotInStateRegistry)
	}
	if a.YearsInBusiness != nil && *a.YearsInBusiness < c.minYears {
		flags = append(flags, fmt.Sprintf("operating for only %g years", *a.YearsInBusiness))
	}
	if a.Status != nil && a.Active != nil && !*a.Active {
		flags = append(flags, fmt.Sprintf("status '%s' instead of active", *a.Status))
	}
	return flags
}
