package models

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotStatus represents the outcome of a report generation run
type SnapshotStatus string

const (
	StatusLoading  SnapshotStatus = "loading"
	StatusComplete SnapshotStatus = "complete"
	StatusFailed   SnapshotStatus = "failed"
)

// Snapshot records one generated report
type Snapshot struct {
	ID          string         `json:"id"`
	Island      string         `json:"island"`
	GeneratedAt time.Time      `json:"generated_at"`
	Status      SnapshotStatus `json:"status"`
	ReportPath  string         `json:"report_path,omitempty"`

	ScannedCount  int `json:"scanned_count"`
	BreachedCount int `json:"breached_count"`

	// MachineIssues maps a machine label to the issue types found on it.
	MachineIssues map[string][]string `json:"machine_issues,omitempty"`
}

// NewSnapshot creates a snapshot with a fresh ID
func NewSnapshot(island string) *Snapshot {
	return &Snapshot{
		ID:            uuid.New().String(),
		Island:        island,
		GeneratedAt:   time.Now(),
		Status:        StatusLoading,
		MachineIssues: make(map[string][]string),
	}
}
