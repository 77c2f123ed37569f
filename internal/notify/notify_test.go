package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hakim/islandreport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendCompletion(t *testing.T) {
	var got completionPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	snap := models.NewSnapshot("https://island:5000")
	snap.Status = models.StatusComplete
	snap.ScannedCount = 4
	snap.BreachedCount = 1
	snap.MachineIssues = map[string][]string{"web01": {"SSHExploiter"}, "dc01": {"ZerologonExploiter"}}

	n := &Notifier{WebhookURL: srv.URL}
	require.NoError(t, n.SendCompletion(context.Background(), snap, "25.0%"))

	assert.Equal(t, snap.ID, got.SnapshotID)
	assert.Equal(t, "complete", got.Status)
	assert.Equal(t, []string{"dc01", "web01"}, got.AffectedMachines)
	assert.Equal(t, "25.0%", got.ExploitPercentage)
}

func TestSendCompletion_NoWebhook(t *testing.T) {
	var n *Notifier
	assert.NoError(t, n.SendCompletion(context.Background(), models.NewSnapshot("x"), "N/A"))
	assert.NoError(t, (&Notifier{}).SendCompletion(context.Background(), models.NewSnapshot("x"), "N/A"))
}

func TestSendCompletion_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := (&Notifier{WebhookURL: srv.URL}).SendCompletion(context.Background(), models.NewSnapshot("x"), "N/A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
