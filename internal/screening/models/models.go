// Package models holds the value types shared by screening checks and the runner.
package models

import (
	"fmt"
	"strings"
	"time"

	id "quickfi/pkg/domain"
	dErrors "quickfi/pkg/domain-errors"
	pstrings "quickfi/pkg/platform/strings"
)

// StageID names a verification stage.
type StageID string

const (
	StageIdentity      StageID = "identity"
	StageRegistry      StageID = "registry"
	StageStateRegistry StageID = "state_registry"
	StageSanctions     StageID = "sanctions"
	StageWebPresence   StageID = "web_presence"
	StageAdverseMedia  StageID = "adverse_media"
)

// AllStages is the default stage order for a full run.
var AllStages = []StageID{
	StageIdentity,
	StageRegistry,
	StageStateRegistry,
	StageSanctions,
	StageWebPresence,
	StageAdverseMedia,
}

// IsValid reports whether s is a known stage.
func (s StageID) IsValid() bool {
	for _, known := range AllStages {
		if s == known {
			return true
		}
	}
	return false
}

func (s StageID) String() string { return string(s) }

// ParseStages converts raw stage names, rejecting unknown ones and dropping
// blanks and duplicates. No names at all selects every stage.
func ParseStages(raw []string) ([]StageID, error) {
	names := pstrings.DedupeAndTrim(raw)
	if len(names) == 0 {
		return append([]StageID(nil), AllStages...), nil
	}
	out := make([]StageID, 0, len(names))
	for _, n := range names {
		s := StageID(n)
		if !s.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown stage %q", n))
		}
		out = append(out, s)
	}
	return out, nil
}

// Outcome is the terminal state of one stage.
type Outcome string

const (
	OutcomePass    Outcome = "PASS"
	OutcomeFlagged Outcome = "FLAGGED"
	OutcomeError   Outcome = "ERROR"
	OutcomeSkipped Outcome = "SKIPPED"
)

// CheckResult is what a stage hands back to the runner. Flags are persisted
// only for PASS and FLAGGED; Reason explains ERROR and SKIPPED outcomes.
type CheckResult struct {
	Stage    StageID
	Outcome  Outcome
	Flags    []string
	Reason   string
	Evidence string
	Err      error

	// Registry is the single company a registry search matched, handed to
	// later stages of the same run.
	Registry *RegistryMatch
}

// Pass builds a PASS result.
func Pass(stage StageID, evidence string) CheckResult {
	return CheckResult{Stage: stage, Outcome: OutcomePass, Evidence: evidence}
}

// Flagged builds a FLAGGED result, or PASS when flags is empty.
func Flagged(stage StageID, flags ...string) CheckResult {
	if len(flags) == 0 {
		return CheckResult{Stage: stage, Outcome: OutcomePass}
	}
	return CheckResult{Stage: stage, Outcome: OutcomeFlagged, Flags: flags}
}

// Failed builds an ERROR result carrying a human-readable reason.
func Failed(stage StageID, reason string, err error) CheckResult {
	return CheckResult{Stage: stage, Outcome: OutcomeError, Reason: reason, Err: err}
}

// Persistable reports whether the result's flags go to the flag store.
func (r CheckResult) Persistable() bool {
	return r.Outcome == OutcomePass || r.Outcome == OutcomeFlagged
}

// StageReport is the serialized view of one stage in a run report.
type StageReport struct {
	Stage      StageID       `json:"stage"`
	Outcome    Outcome       `json:"outcome"`
	Flags      []string      `json:"flags,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Evidence   string        `json:"evidence,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// NewStageReport converts a result into its report form.
func NewStageReport(r CheckResult, d time.Duration) StageReport {
	sr := StageReport{
		Stage:      r.Stage,
		Outcome:    r.Outcome,
		Flags:      r.Flags,
		Reason:     r.Reason,
		Evidence:   r.Evidence,
		Duration:   d,
		DurationMS: d.Milliseconds(),
	}
	if r.Err != nil {
		sr.Error = r.Err.Error()
	}
	return sr
}

// RunReport summarizes one pipeline run for one vendor.
type RunReport struct {
	RunID         id.RunID      `json:"run_id"`
	VendorID      id.VendorID   `json:"vendor_id"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	Stages        []StageReport `json:"stages"`
	FlagsAppended int           `json:"flags_appended"`
	TotalFlags    int           `json:"total_flags"`
	Errors        []string      `json:"errors,omitempty"`
}

// Stage returns the report for s, if it ran.
func (r *RunReport) Stage(s StageID) (StageReport, bool) {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st, true
		}
	}
	return StageReport{}, false
}

// RegistryMatch is the single company returned by a registry search.
type RegistryMatch struct {
	Name            string   `json:"name"`
	State           string   `json:"state,omitempty"`
	YearsInBusiness *float64 `json:"years_in_business,omitempty"`
	OperatingStatus string   `json:"operating_status,omitempty"`
}

// Active reports whether the registry lists the company as operating.
func (m RegistryMatch) Active() bool {
	return m.OperatingStatus == "" || m.OperatingStatus == "Active"
}

// GeocodeResult is the subset of a geocoder answer the web presence check reads.
type GeocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Precision        string   `json:"precision"`
	PlaceTypes       []string `json:"place_types"`
}

// RegistryQuery is a company search against the business registry.
// Country is empty when the jurisdiction is not searched by country.
type RegistryQuery struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country,omitempty"`
}

// RegistryResponse is the normalized search answer.
type RegistryResponse struct {
	Success   bool            `json:"success"`
	Companies []RegistryMatch `json:"companies"`
}

// ScreeningRequest triggers a run. Empty Stages means every stage.
type ScreeningRequest struct {
	AccountID string   `json:"account_id" validate:"omitempty,uuid"`
	Stages    []string `json:"stages" validate:"omitempty,max=6,dive,notblank"`
}

func (r *ScreeningRequest) Normalize() {
	r.AccountID = strings.TrimSpace(r.AccountID)
	for i := range r.Stages {
		r.Stages[i] = strings.ToLower(strings.TrimSpace(r.Stages[i]))
	}
}

func (r *ScreeningRequest) Validate() error {
	_, err := ParseStages(r.Stages)
	return err
}

// NotificationRequest asks for the flag summary to be sent. An empty
// Recipient falls back to the configured default.
type NotificationRequest struct {
	Recipient string `json:"recipient" validate:"omitempty,email"`
}

func (r *NotificationRequest) Normalize() {
	r.Recipient = strings.TrimSpace(r.Recipient)
}

// NoFlagsMessage is returned instead of notifying when a vendor has no flags.
const NoFlagsMessage = "No flags found for vendor"

// NotificationResult reports whether a summary went out.
type NotificationResult struct {
	Sent      bool     `json:"sent"`
	Message   string   `json:"message"`
	FlagCount int      `json:"flag_count"`
	Channels  []string `json:"channels,omitempty"`
}
