package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"quickfi/internal/screening/models"
	vmodels "quickfi/internal/vendors/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRunReport(w io.Writer, r *models.RunReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("Run %s for vendor %s", r.RunID, r.VendorID))
	tw.AppendHeader(table.Row{"Stage", "Outcome", "Flags", "Detail", "ms"})
	for _, s := range r.Stages {
		detail := s.Reason
		if s.Error != "" {
			detail = s.Error
		}
		tw.AppendRow(table.Row{s.Stage, s.Outcome, strings.Join(s.Flags, "; "), detail, s.DurationMS})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d appended", r.FlagsAppended), fmt.Sprintf("%d total", r.TotalFlags), ""})
	tw.Render()
}

func printFlags(w io.Writer, s *vmodels.FlagSummary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "Flag"})
	for i, f := range s.Flags {
		tw.AppendRow(table.Row{i + 1, f})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d flags", s.Count)})
	tw.Render()
}

func printDueDiligence(w io.Writer, d *vmodels.DueDiligence) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"", "Account", "Vendor"})
	tw.AppendRow(table.Row{"Name", d.AccountName, d.VendorName})
	tw.AppendRow(table.Row{"Address", d.AccountAddress, d.VendorAddress})
	tw.AppendRow(table.Row{"Website", "", d.VendorWebsite})
	tw.Render()
}
