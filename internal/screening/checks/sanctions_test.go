package checks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfi/internal/screening/models"
	"quickfi/internal/screening/sources"
)

func TestSanctionsCheck(t *testing.T) {
	timeout := sources.NewSourceError(sources.ErrorTimeout, "sanctions", "request timeout", nil)
	tests := []struct {
		name    string
		hit     bool
		err     error
		outcome models.Outcome
		flags   []string
		cached  bool
	}{
		{name: "no match", outcome: models.OutcomePass, cached: false},
		{name: "match", hit: true, outcome: models.OutcomeFlagged, flags: []string{FlagSanctioned}, cached: true},
		{name: "timeout fails closed", err: timeout, outcome: models.OutcomeFlagged, flags: []string{FlagSanctioned}, cached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &recordingCache{}
			var gotScore int
			search := stubSanctions{searchFn: func(_ context.Context, _ string, minScore int) (bool, error) {
				gotScore = minScore
				return tt.hit, tt.err
			}}

			res, err := NewSanctionsCheck(search, cache, 0, nil).Run(context.Background(), Input{Vendor: testVendor()})
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.flags, res.Flags)
			assert.Equal(t, []bool{tt.cached}, cache.sanctions)
			assert.Equal(t, DefaultSanctionsMinScore, gotScore)
			if tt.err != nil {
				assert.Contains(t, res.Evidence, "request timeout")
			}
		})
	}
}

// Invariant: each check picks its own result when the runner abandons it.
func TestTimeoutResults(t *testing.T) {
	cause := context.DeadlineExceeded
	in := Input{Vendor: testVendor()}

	t.Run("sanctions fails closed", func(t *testing.T) {
		cache := &recordingCache{}
		res, err := NewSanctionsCheck(stubSanctions{}, cache, 0, nil).TimeoutResult(context.Background(), in, cause)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFlagged, res.Outcome)
		assert.Equal(t, []string{FlagSanctioned}, res.Flags)
		assert.Equal(t, []bool{true}, cache.sanctions)
	})

	t.Run("web presence stays flagged", func(t *testing.T) {
		res, err := NewWebPresenceCheck(extractorReturning("{}"), stubGeocoder{}, nil).TimeoutResult(context.Background(), in, cause)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFlagged, res.Outcome)
		assert.Equal(t, []string{FlagAddressDetailsFailed}, res.Flags)
	})

	t.Run("adverse media surfaces", func(t *testing.T) {
		res, err := NewAdverseMediaCheck(extractorReturning("{}"), 0).TimeoutResult(context.Background(), in, cause)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, models.OutcomeError, res.Outcome)
		assert.False(t, res.Persistable())
	})
}
