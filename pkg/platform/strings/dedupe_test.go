package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	got := DedupeAndTrim([]string{" sanctions ", "registry", "sanctions", "", "  "})
	assert.Equal(t, []string{"sanctions", "registry"}, got)
	assert.Empty(t, DedupeAndTrim(nil))
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "account_id", ToSnakeCase("AccountID"))
	assert.Equal(t, "stages", ToSnakeCase("Stages"))
	assert.Equal(t, "recipient_email", ToSnakeCase("RecipientEmail"))
}
