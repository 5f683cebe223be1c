package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "quickfi/pkg/domain-errors"
)

type screeningBody struct {
	AccountID string   `validate:"omitempty,uuid"`
	Stages    []string `validate:"required,min=1,max=6,dive,oneof=identity registry"`
	Recipient string   `validate:"omitempty,email"`
}

func TestValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		require.NoError(t, Validate(&screeningBody{Stages: []string{"identity"}}))
	})

	t.Run("missing stages", func(t *testing.T) {
		err := Validate(&screeningBody{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "stages is required", err.Error())
	})

	t.Run("bad account id", func(t *testing.T) {
		err := Validate(&screeningBody{AccountID: "nope", Stages: []string{"registry"}})
		require.Error(t, err)
		assert.Equal(t, "account_id must be a valid uuid", err.Error())
	})

	t.Run("bad email", func(t *testing.T) {
		err := Validate(&screeningBody{Stages: []string{"registry"}, Recipient: "x"})
		require.Error(t, err)
		assert.Equal(t, "recipient must be a valid email", err.Error())
	})
}
