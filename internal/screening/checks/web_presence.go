package checks

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/models"
)

const (
	FlagNoListing            = "no business listing found"
	FlagListingMismatch      = "business listing address does not match"
	FlagNoWebsite            = "no website found"
	FlagWebsiteMismatch      = "website address missing or does not match"
	FlagAddressUnresolved    = "address could not be resolved"
	FlagAddressNotRooftop    = "address is not a rooftop match"
	FlagAddressNotBusiness   = "address is not a business location"
	FlagAddressPOBox         = "address appears to be a P.O. box"
	FlagAddressDetailsFailed = "address details could not be found"

	PrecisionRooftop = "ROOFTOP"
)

var (
	businessPlaceTypes = []string{"establishment", "point_of_interest", "premise", "street_address"}
	poBoxPlaceTypes    = []string{"post_box", "post_office"}
)

type webPresenceAnswer struct {
	ListingFound          *bool `json:"listing_found"`
	ListingAddressMatches *bool `json:"listing_address_matches"`
	WebsiteFound          *bool `json:"website_found"`
	WebsiteAddressMatches *bool `json:"website_address_matches"`
}

func (a webPresenceAnswer) complete() bool {
	return a.ListingFound != nil && a.ListingAddressMatches != nil &&
		a.WebsiteFound != nil && a.WebsiteAddressMatches != nil
}

// WebPresenceCheck looks for a business listing, a website and a plausible
// business address. It never ends in ERROR: a failing sub-check adds one
// generic flag and keeps whatever the other sub-check found.
type WebPresenceCheck struct {
	extractor Extractor
	geocoder  Geocoder
	logger    *slog.Logger
}

func NewWebPresenceCheck(ext Extractor, geo Geocoder, logger *slog.Logger) *WebPresenceCheck {
	return &WebPresenceCheck{extractor: ext, geocoder: geo, logger: loggerOrDefault(logger)}
}

func (c *WebPresenceCheck) Stage() models.StageID { return models.StageWebPresence }

func (c *WebPresenceCheck) Run(ctx context.Context, in Input) (models.CheckResult, error) {
	v := in.Vendor
	address := v.Address.Formatted()

	searchFlags, searchErr := c.searchPresence(ctx, v.Name, address, v.Website)
	geoFlags, geoErr := c.geocode(ctx, address)

	flags := append(searchFlags, geoFlags...)
	res := models.Flagged(c.Stage(), flags...)
	if err := errors.Join(searchErr, geoErr); err != nil {
		c.logger.WarnContext(ctx, "web presence sub-check failed", "vendor_id", v.ID.String(), "error", err)
		res = models.Flagged(c.Stage(), append(flags, FlagAddressDetailsFailed)...)
		res.Err = err
	}
	return res, nil
}

// TimeoutResult keeps the stage out of ERROR when the runner abandons it.
func (c *WebPresenceCheck) TimeoutResult(ctx context.Context, in Input, cause error) (models.CheckResult, error) {
	c.logger.WarnContext(ctx, "web presence check overran", "vendor_id", in.Vendor.ID.String(), "error", cause)
	res := models.Flagged(c.Stage(), FlagAddressDetailsFailed)
	res.Err = cause
	return res, nil
}

func (c *WebPresenceCheck) searchPresence(ctx context.Context, name, address, website string) ([]string, error) {
	raw, err := c.extractor.Analyze(ctx, webPresencePrompt(name, address, website))
	if err != nil {
		return nil, err
	}
	a, err := extractor.Decode[webPresenceAnswer](raw)
	if err != nil {
		return nil, err
	}
	if !a.complete() {
		return nil, &extractor.ParseError{Raw: string(raw), Err: errors.New("missing presence fields")}
	}

	var flags []string
	if !*a.ListingFound {
		flags = append(flags, FlagNoListing)
	}
	if !*a.ListingAddressMatches {
		flags = append(flags, FlagListingMismatch)
	}
	if !*a.WebsiteFound {
		flags = append(flags, FlagNoWebsite)
	}
	if !*a.WebsiteAddressMatches {
		flags = append(flags, FlagWebsiteMismatch)
	}
	return flags, nil
}

func (c *WebPresenceCheck) geocode(ctx context.Context, address string) ([]string, error) {
	res, err := c.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []string{FlagAddressUnresolved}, nil
	}

	var flags []string
	if res.Precision != PrecisionRooftop {
		flags = append(flags, FlagAddressNotRooftop)
	}
	if !containsAny(res.PlaceTypes, businessPlaceTypes) {
		flags = append(flags, FlagAddressNotBusiness)
	}
	if containsAny(res.PlaceTypes, poBoxPlaceTypes) {
		flags = append(flags, FlagAddressPOBox)
	}
	return flags, nil
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}
