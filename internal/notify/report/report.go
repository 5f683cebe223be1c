// Package report renders a flag summary as a plain-text body and as a PDF.
package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/phpdave11/gofpdf"

	"quickfi/internal/notify"
)

// NoFlagsMessage replaces the flag table when a vendor has no flags.
const NoFlagsMessage = "No flags found for vendor"

// Subject is the notification subject line for vendorName.
func Subject(vendorName string) string {
	return "Vendor Due Diligence Flags - " + vendorName
}

// FlagTable renders the flags as a numbered ASCII table.
func FlagTable(flags []string) string {
	if len(flags) == 0 {
		return NoFlagsMessage
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Flag"})
	for i, f := range flags {
		t.AppendRow(table.Row{i + 1, f})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

// Text is the plain-text notification body.
func Text(s notify.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Vendor Name: %s\n", s.VendorName)
	fmt.Fprintf(&b, "- Vendor Address: %s\n\n", s.VendorAddress)
	fmt.Fprintf(&b, "- Summary of Flags (%d):\n", len(s.Flags))
	b.WriteString(FlagTable(s.Flags))
	b.WriteString("\n")
	return b.String()
}

// PDF renders the summary as a one-document A4 report.
func PDF(s notify.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Subject(s.VendorName), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Vendor Due Diligence Flags", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Vendor: "+s.VendorName, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Address: "+s.VendorAddress, "", 1, "L", false, 0, "")
	if !s.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 7, "Generated: "+s.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(s.Flags) == 0 {
		pdf.CellFormat(0, 7, NoFlagsMessage, "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(12, 8, "#", "1", 0, "C", true, 0, "")
		pdf.CellFormat(0, 8, "Flag", "1", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for i, f := range s.Flags {
			pdf.CellFormat(12, 7, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(0, 7, f, "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render flag report pdf: %w", err)
	}
	return buf.Bytes(), nil
}
