// Package diff summarizes generated reports into snapshots and computes the
// delta between two snapshots of the same Island.
package diff

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hakim/islandreport/internal/models"
	"github.com/hakim/islandreport/internal/report"
)

// TunnelIssueType labels tunnel findings in snapshots.
const TunnelIssueType = "Tunnel"

// Summarize fills snap with the counters and per-machine issue types of view.
// Machines are labelled by hostname when known, otherwise by identifier.
// A hostname shared by several machines is qualified as "hostname (id)".
func Summarize(snap *models.Snapshot, view report.View) {
	if view.Loading() {
		return
	}

	snap.ScannedCount = view.Report.Glance.ScannedCount
	snap.BreachedCount = view.Report.Glance.BreachedCount
	if snap.MachineIssues == nil {
		snap.MachineIssues = make(map[string][]string)
	}

	hostnames := make(map[string]int, len(view.Machines))
	for _, m := range view.Machines {
		hostnames[m.Hostname]++
	}
	labels := make(map[string]string, len(view.Machines))
	for _, m := range view.Machines {
		id := strconv.Itoa(m.ID)
		switch {
		case m.Hostname == "":
		case hostnames[m.Hostname] > 1:
			labels[id] = fmt.Sprintf("%s (%s)", m.Hostname, id)
		default:
			labels[id] = m.Hostname
		}
	}
	label := func(id string) string {
		if l, ok := labels[id]; ok {
			return l
		}
		return "machine-" + id
	}

	for id, issues := range view.Report.Recommendations.Issues {
		for _, issue := range issues {
			snap.MachineIssues[label(id)] = appendUnique(snap.MachineIssues[label(id)], issue.Type)
		}
	}
	for _, t := range report.BuildTunnels(view.Agents, view.Machines) {
		if _, ok := view.Report.Recommendations.Issues[t.MachineID]; !ok {
			continue
		}
		snap.MachineIssues[label(t.MachineID)] = appendUnique(snap.MachineIssues[label(t.MachineID)], TunnelIssueType)
	}

	for machine := range snap.MachineIssues {
		sort.Strings(snap.MachineIssues[machine])
	}
}

// MachineChange lists issue types that appeared or disappeared on one machine.
type MachineChange struct {
	Machine string   `json:"machine"`
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Result is the delta between a previous and a current snapshot.
type Result struct {
	PreviousID string `json:"previous_id"`
	CurrentID  string `json:"current_id"`

	NewlyAffected []string        `json:"newly_affected,omitempty"`
	NoLongerHit   []string        `json:"no_longer_affected,omitempty"`
	Changed       []MachineChange `json:"changed,omitempty"`

	ScannedDelta  int `json:"scanned_delta"`
	BreachedDelta int `json:"breached_delta"`
}

// HasChanges reports whether anything differs between the two snapshots.
func (r *Result) HasChanges() bool {
	return len(r.NewlyAffected) > 0 || len(r.NoLongerHit) > 0 || len(r.Changed) > 0 ||
		r.ScannedDelta != 0 || r.BreachedDelta != 0
}

// Compare computes what changed from prev to cur.
func Compare(prev, cur *models.Snapshot) *Result {
	res := &Result{
		PreviousID:    prev.ID,
		CurrentID:     cur.ID,
		ScannedDelta:  cur.ScannedCount - prev.ScannedCount,
		BreachedDelta: cur.BreachedCount - prev.BreachedCount,
	}

	for _, machine := range sortedKeys(cur.MachineIssues) {
		before, existed := prev.MachineIssues[machine]
		if !existed {
			res.NewlyAffected = append(res.NewlyAffected, machine)
			continue
		}
		added := difference(cur.MachineIssues[machine], before)
		removed := difference(before, cur.MachineIssues[machine])
		if len(added) > 0 || len(removed) > 0 {
			res.Changed = append(res.Changed, MachineChange{Machine: machine, Added: added, Removed: removed})
		}
	}

	for _, machine := range sortedKeys(prev.MachineIssues) {
		if _, still := cur.MachineIssues[machine]; !still {
			res.NoLongerHit = append(res.NoLongerHit, machine)
		}
	}

	return res
}

// difference returns the elements of a not present in b, in a's order.
func difference(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if !set[s] {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(slice []string, s string) []string {
	for _, existing := range slice {
		if existing == s {
			return slice
		}
	}
	return append(slice, s)
}
