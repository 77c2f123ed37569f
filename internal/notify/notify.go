package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/hakim/islandreport/internal/models"
)

// Notifier posts report completion notifications to a webhook.
type Notifier struct {
	WebhookURL string // if empty, no notifications
	Client     *http.Client
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	Island            string   `json:"island"`
	SnapshotID        string   `json:"snapshot_id"`
	Status            string   `json:"status"`
	ReportPath        string   `json:"report_path,omitempty"`
	GeneratedAt       string   `json:"generated_at"`
	ScannedCount      int      `json:"scanned_count"`
	BreachedCount     int      `json:"breached_count"`
	AffectedMachines  []string `json:"affected_machines,omitempty"`
	ExploitPercentage string   `json:"exploit_percentage"`
}

// SendCompletion posts a JSON summary of snap to the webhook URL.
// Returns nil if WebhookURL is empty (no-op). Callers should treat errors as warnings.
func (n *Notifier) SendCompletion(ctx context.Context, snap *models.Snapshot, exploitPercentage string) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	payload := completionPayload{
		Island:            snap.Island,
		SnapshotID:        snap.ID,
		Status:            string(snap.Status),
		ReportPath:        snap.ReportPath,
		GeneratedAt:       snap.GeneratedAt.UTC().Format(time.RFC3339),
		ScannedCount:      snap.ScannedCount,
		BreachedCount:     snap.BreachedCount,
		ExploitPercentage: exploitPercentage,
	}
	for machine := range snap.MachineIssues {
		payload.AffectedMachines = append(payload.AffectedMachines, machine)
	}
	sort.Strings(payload.AffectedMachines)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
