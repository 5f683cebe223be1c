package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickfi/internal/notify"
)

func summary(flags ...string) notify.Summary {
	return notify.Summary{VendorName: "Acme Corp", VendorAddress: "100 Main St, Austin, TX, 78701", Flags: flags}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Vendor Due Diligence Flags - Acme Corp", Subject("Acme Corp"))
}

func TestText(t *testing.T) {
	body := Text(summary("name match", "found on sanctions list"))
	assert.Contains(t, body, "- Vendor Name: Acme Corp")
	assert.Contains(t, body, "- Vendor Address: 100 Main St, Austin, TX, 78701")
	assert.Contains(t, body, "Summary of Flags (2)")
	assert.Contains(t, body, "found on sanctions list")

	assert.Contains(t, Text(summary()), NoFlagsMessage)
}

func TestPDF(t *testing.T) {
	data, err := PDF(summary("name match"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	empty, err := PDF(summary())
	require.NoError(t, err)
	assert.NotEmpty(t, empty)
}
