package models

import (
	"encoding/json"
)

// Report is the pre-aggregated security report served by the Island.
// It is read-only for the duration of a render pass and replaced wholesale
// when a newer report arrives.
type Report struct {
	Overview           Overview            `json:"overview"`
	Glance             Glance              `json:"glance"`
	Recommendations    Recommendations     `json:"recommendations"`
	CrossSegmentIssues []CrossSegmentIssue `json:"cross_segment_issues"`

	// topLevelKeys counts the keys of the decoded JSON object. A report
	// decoded from "{}" is the "not yet loaded" placeholder.
	topLevelKeys int
}

// Overview describes how the simulation was run.
type Overview struct {
	StartTime      string   `json:"monkey_start_time"`
	Duration       string   `json:"monkey_duration"`
	ConfigExploits []string `json:"config_exploits"`
	ConfigIPs      []string `json:"config_ips"`
	ConfigScan     bool     `json:"config_scan"`
}

// Glance holds the at-a-glance host counters.
type Glance struct {
	ScannedCount  int `json:"scanned_count"`
	BreachedCount int `json:"exploited_count"`
}

// Recommendations maps machine identifiers to the issues found on them.
type Recommendations struct {
	Issues map[string][]Issue `json:"issues"`
}

// Issue is a single finding on a single machine.
type Issue struct {
	Type                  string `json:"type"`
	Description           string `json:"description,omitempty"`
	RemediationSuggestion string `json:"remediation_suggestion,omitempty"`
	PasswordRestored      *bool  `json:"password_restored,omitempty"`
}

// CrossSegmentIssue groups segmentation findings between two subnets.
type CrossSegmentIssue struct {
	SourceSubnet string                `json:"source_subnet"`
	TargetSubnet string                `json:"target_subnet"`
	Issues       []SegmentationFinding `json:"issues"`
}

// SegmentationFinding records traffic that crossed a network boundary.
type SegmentationFinding struct {
	Source   string   `json:"source"`
	Hostname string   `json:"hostname"`
	Target   string   `json:"target"`
	Services []string `json:"services,omitempty"`
	IsSelf   bool     `json:"is_self"`
}

// UnmarshalJSON decodes a report and remembers how many top-level keys the
// object carried.
func (r *Report) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	type plain Report
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*r = Report(p)
	r.topLevelKeys = len(keys)
	return nil
}

// IsEmpty reports whether r is the "not yet loaded" placeholder: nil, or
// carrying no top-level data at all.
func (r *Report) IsEmpty() bool {
	if r == nil {
		return true
	}
	if r.topLevelKeys > 0 {
		return false
	}
	return r.Overview.StartTime == "" &&
		r.Overview.Duration == "" &&
		len(r.Overview.ConfigExploits) == 0 &&
		len(r.Overview.ConfigIPs) == 0 &&
		!r.Overview.ConfigScan &&
		r.Glance == (Glance{}) &&
		len(r.Recommendations.Issues) == 0 &&
		len(r.CrossSegmentIssues) == 0
}
