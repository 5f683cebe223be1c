package checks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfi/internal/screening/extractor"
	"quickfi/internal/screening/models"
)

func TestAdverseMediaCheck(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		outcome models.Outcome
		flags   []string
	}{
		{name: "clean", body: `{"adverse_findings":false,"reasons":[]}`, outcome: models.OutcomePass},
		{
			name:    "one flag per reason",
			body:    `{"adverse_findings":true,"reasons":["SEC enforcement action in 2023"," ","Chapter 11 filing in 2024"]}`,
			outcome: models.OutcomeFlagged,
			flags:   []string{"SEC enforcement action in 2023", "Chapter 11 filing in 2024"},
		},
		{
			name:    "findings without reasons",
			body:    `{"adverse_findings":true,"reasons":[]}`,
			outcome: models.OutcomeFlagged,
			flags:   []string{FlagAdverseMedia},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewAdverseMediaCheck(extractorReturning(tt.body), 0).Run(context.Background(), Input{Vendor: testVendor()})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.flags, res.Flags)
		})
	}
}

func TestAdverseMediaPromptCarriesStalenessWindow(t *testing.T) {
	ext := extractorReturning(`{"adverse_findings":false,"reasons":[]}`)
	_, err := NewAdverseMediaCheck(ext, 0).Run(context.Background(), Input{Vendor: testVendor()})
	require.NoError(t, err)
	require.Len(t, ext.prompts, 1)
	assert.Contains(t, ext.prompts[0], "older than 5 years")
	assert.Contains(t, ext.prompts[0], `"Acme Corp"`)
}

// Invariant: adverse media failures are surfaced as errors.
func TestAdverseMediaFailuresAreSurfaced(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		_, err := NewAdverseMediaCheck(extractorFailing(errors.New("503")), 0).Run(context.Background(), Input{Vendor: testVendor()})
		assert.ErrorContains(t, err, "adverse media analysis")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := NewAdverseMediaCheck(extractorReturning(`{"reasons":["x"]}`), 0).Run(context.Background(), Input{Vendor: testVendor()})
		assert.True(t, extractor.IsParseError(err))
	})
}
