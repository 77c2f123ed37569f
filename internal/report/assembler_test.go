package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hakim/islandreport/internal/island"
	"github.com/hakim/islandreport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeIsland serves canned JSON per path. A path listed in gates blocks until
// its gate channel is closed.
type fakeIsland struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	gates     map[string]chan struct{}
	calls     map[string]int
}

func newFakeIsland() *fakeIsland {
	return &fakeIsland{
		responses: map[string]string{
			island.PathStolenCredentials:     `[{"identity": {"username": "admin"}, "secret": {"password": "x"}}]`,
			island.PathConfiguredCredentials: `[]`,
			island.PathAgents:                `[{"id": "a1", "machine_id": 2, "cc_server": "10.0.0.1:5000"}]`,
			island.PathMachines:              `[{"id": 2, "hostname": "web01", "network_interfaces": ["10.0.0.2/24"]}]`,
		},
		failures: map[string]error{},
		gates:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func (f *fakeIsland) gate(path string) chan struct{} {
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeIsland) fetch(ctx context.Context, path string, out any) error {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gates[path]
	body := f.responses[path]
	failure := f.failures[path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if failure != nil {
		return failure
	}
	return json.Unmarshal([]byte(body), out)
}

func loadedReport() *models.Report {
	return &models.Report{
		Overview: models.Overview{ConfigExploits: []string{"SSHExploiter"}},
		Glance:   models.Glance{ScannedCount: 2, BreachedCount: 1},
		Recommendations: models.Recommendations{Issues: map[string][]models.Issue{
			"2": {{Type: "SSHExploiter"}},
		}},
	}
}

func waitNotified(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestAssembler_LoadsAllSlots(t *testing.T) {
	fake := newFakeIsland()
	a := NewAssembler(fake.fetch, loadedReport())
	defer a.Close()

	a.Start(context.Background())
	a.Start(context.Background())
	a.Wait()

	v := a.View()
	require.Len(t, v.StolenCredentials, 1)
	assert.Empty(t, v.ConfiguredCredentials)
	require.Len(t, v.Agents, 1)
	require.Len(t, v.Machines, 1)

	for _, path := range []string{island.PathStolenCredentials, island.PathConfiguredCredentials, island.PathAgents, island.PathMachines} {
		assert.Equal(t, 1, fake.calls[path], "Start must fetch %s exactly once", path)
	}
}

func TestAssembler_SlotsResolveIndependently(t *testing.T) {
	fake := newFakeIsland()
	machinesGate := fake.gate(island.PathMachines)

	a := NewAssembler(fake.fetch, loadedReport())
	defer a.Close()
	changes := a.Subscribe()

	a.Start(context.Background())

	// Everything except machines lands while machines is still blocked.
	require.Eventually(t, func() bool {
		v := a.View()
		return len(v.Agents) == 1 && len(v.StolenCredentials) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, a.View().Machines)
	assert.Contains(t, a.View().Markdown(), "### Unknown machine (2)")

	// Drain, then release the last fetch and expect a fresh notification.
	select {
	case <-changes:
	default:
	}
	close(machinesGate)
	waitNotified(t, changes)
	a.Wait()

	assert.Len(t, a.View().Machines, 1)
	assert.Contains(t, a.View().Markdown(), "### web01 (10.0.0.2)")
}

func TestAssembler_FailedFetchLeavesSlotEmpty(t *testing.T) {
	fake := newFakeIsland()
	fake.failures[island.PathStolenCredentials] = errors.New("connection refused")
	fake.failures[island.PathAgents] = &island.StatusError{Method: "GET", Path: island.PathAgents, StatusCode: 500}

	a := NewAssembler(fake.fetch, loadedReport())
	defer a.Close()
	a.Start(context.Background())
	a.Wait()

	v := a.View()
	assert.Empty(t, v.StolenCredentials)
	assert.Empty(t, v.Agents)
	assert.Len(t, v.Machines, 1)

	out := v.Markdown()
	assert.Contains(t, out, "No credentials were stolen.")
	assert.NotContains(t, out, "connection refused")
}

func TestAssembler_LoadingUntilReportArrives(t *testing.T) {
	fake := newFakeIsland()
	a := NewAssembler(fake.fetch, &models.Report{})
	defer a.Close()
	a.Start(context.Background())
	a.Wait()

	var b strings.Builder
	require.NoError(t, a.Render(&b))
	assert.Equal(t, LoadingText, b.String())

	changes := a.Subscribe()
	a.SetReport(loadedReport())
	waitNotified(t, changes)

	b.Reset()
	require.NoError(t, a.Render(&b))
	assert.Contains(t, b.String(), "## Overview")
}

func TestAssembler_SetReportSameReferenceIsNoop(t *testing.T) {
	r := loadedReport()
	a := NewAssembler(newFakeIsland().fetch, r)
	defer a.Close()
	changes := a.Subscribe()

	a.SetReport(r)
	select {
	case <-changes:
		t.Fatal("same report reference must not signal a change")
	default:
	}

	other := loadedReport()
	a.SetReport(other)
	waitNotified(t, changes)
	assert.Same(t, other, a.View().Report)
}

func TestAssembler_CloseDropsLateResults(t *testing.T) {
	fake := newFakeIsland()
	gate := fake.gate(island.PathAgents)

	a := NewAssembler(fake.fetch, loadedReport())
	changes := a.Subscribe()
	a.Start(context.Background())

	a.Close()
	a.Close()

	close(gate)
	a.Wait()

	assert.Empty(t, a.View().Agents, "results arriving after Close are discarded")

	// The subscription channel is closed, so draining terminates.
	for range changes {
	}

	late := a.Subscribe()
	_, open := <-late
	assert.False(t, open)
}

func TestAssembler_ContextCancellation(t *testing.T) {
	fake := newFakeIsland()
	fake.gate(island.PathMachines)

	ctx, cancel := context.WithCancel(context.Background())
	a := NewAssembler(fake.fetch, loadedReport())
	defer a.Close()
	a.Start(ctx)

	cancel()
	a.Wait()
	assert.Empty(t, a.View().Machines)
}

func TestAssembler_ClockStampsFooter(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	a := NewAssembler(newFakeIsland().fetch, loadedReport(), WithClock(func() time.Time { return fixed }))
	defer a.Close()

	assert.Contains(t, a.View().Markdown(), "Report generated on 2026-10-18 12:00:00 UTC.")
}
