package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
)

type StateRegistryCheckSuite struct {
	suite.Suite
	links   stubLinks
	scraper stubScraper
	fetched []string
}

func TestStateRegistryCheckSuite(t *testing.T) {
	suite.Run(t, new(StateRegistryCheckSuite))
}

func (s *StateRegistryCheckSuite) SetupTest() {
	s.fetched = nil
	s.links = stubLinks{links: map[string]string{"TX": "https://tx.example/search", "OK": "https://ok.example/search"}}
	s.scraper = stubScraper{fetchFn: func(_ context.Context, url, _ string) (string, error) {
		s.fetched = append(s.fetched, url)
		return "ACME CORP Active", nil
	}}
}

func (s *StateRegistryCheckSuite) run(ext Extractor, in Input) models.CheckResult {
	if in.Vendor == nil {
		in.Vendor = testVendor()
	}
	res, err := NewStateRegistryCheck(s.links, s.scraper, ext).Run(context.Background(), in)
	s.Require().NoError(err)
	return res
}

func (s *StateRegistryCheckSuite) TestFlagsAreEvaluatedIndependently() {
	tests := []struct {
		name  string
		body  string
		flags []string
	}{
		{
			name: "registered and active",
			body: `{"found":true,"registration_date":"2001-01-01","years_in_business":25,"status":"Active","active":true}`,
		},
		{
			name:  "not found",
			body:  `{"found":false,"registration_date":null,"years_in_business":null,"status":null,"active":null}`,
			flags: []string{FlagNotInStateRegistry},
		},
		{
			name:  "young company",
			body:  `{"found":true,"years_in_business":2.5,"status":"Active","active":true}`,
			flags: []string{"operating for only 2.5 years"},
		},
		{
			name:  "young and forfeited",
			body:  `{"found":true,"years_in_business":3,"status":"Forfeited","active":false}`,
			flags: []string{"operating for only 3 years", "status 'Forfeited' instead of active"},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			res := s.run(extractorReturning(tt.body), Input{})
			s.Equal(tt.flags, res.Flags)
			if tt.flags == nil {
				s.Equal(models.OutcomePass, res.Outcome)
			} else {
				s.Equal(models.OutcomeFlagged, res.Outcome)
			}
		})
	}
}

// Invariant: the same extractor output always yields the same flags.
func (s *StateRegistryCheckSuite) TestIdempotent() {
	body := `{"found":true,"years_in_business":1,"status":"Inactive","active":false}`
	first := s.run(extractorReturning(body), Input{})
	second := s.run(extractorReturning(body), Input{})
	s.Equal(first.Flags, second.Flags)
	s.Equal(first.Outcome, second.Outcome)
}

func (s *StateRegistryCheckSuite) TestPrefersRegistryMatchState() {
	s.run(extractorReturning(`{"found":true}`), Input{Registry: &models.RegistryMatch{State: "OK"}})
	s.Equal([]string{"https://ok.example/search"}, s.fetched)
}

func (s *StateRegistryCheckSuite) TestErrors() {
	s.Run("unknown state", func() {
		v := testVendor()
		v.Address.State = "WY"
		res := s.run(extractorReturning(`{"found":true}`), Input{Vendor: v})
		s.Equal(models.OutcomeError, res.Outcome)
		s.Equal(ReasonNoStateURL, res.Reason)
		s.Empty(res.Flags)
	})

	s.Run("scrape failure", func() {
		s.scraper = stubScraper{fetchFn: func(context.Context, string, string) (string, error) {
			return "", sources.NewSourceError(sources.ErrorTimeout, "scraper", "request timeout", nil)
		}}
		res := s.run(extractorReturning(`{"found":true}`), Input{})
		s.Equal(ReasonStateLookupFailed, res.Reason)
		s.SetupTest()
	})

	s.Run("extractor transport failure", func() {
		res := s.run(extractorFailing(errors.New("connection reset")), Input{})
		s.Equal(ReasonStateLookupFailed, res.Reason)
	})

	s.Run("malformed extractor output", func() {
		res := s.run(extractorFailing(&extractor.ParseError{Err: errors.New("bad")}), Input{})
		s.Equal(models.OutcomeError, res.Outcome)
		s.Equal(ReasonStateResultsInvalid, res.Reason)

		res = s.run(extractorReturning(`{"found":"maybe"}`), Input{})
		s.Equal(ReasonStateResultsInvalid, res.Reason)

		res = s.run(extractorReturning(`{"status":"Active"}`), Input{})
		s.Equal(ReasonStateResultsInvalid, res.Reason)
	})
}
