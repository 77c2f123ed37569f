package report

import (
	"testing"

	"github.com/hakim/islandreport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExploitPercentage(t *testing.T) {
	pct, ok := ExploitPercentage(8, 2)
	require.True(t, ok)
	assert.InDelta(t, 25.0, pct, 1e-9)

	_, ok = ExploitPercentage(0, 0)
	assert.False(t, ok)

	assert.Equal(t, "N/A", FormatExploitPercentage(0, 3))
	assert.Equal(t, "33.3%", FormatExploitPercentage(3, 1))
	assert.Equal(t, "100.0%", FormatExploitPercentage(2, 2))
}

func TestManualStartHostnames(t *testing.T) {
	machines := []models.Machine{
		{ID: 1, Hostname: "alpha"},
		{ID: 2, Hostname: "beta"},
		{ID: 3, Hostname: "gamma"},
	}
	agents := []models.Agent{
		{ID: "1", MachineID: 2},
		{ID: "2", MachineID: 1},
		{ID: "3", MachineID: 2},
		{ID: "4", MachineID: 3, ParentID: strPtr("1")},
		{ID: "5", MachineID: 42},
	}

	assert.Equal(t, []string{"beta", "alpha"}, ManualStartHostnames(agents, machines))
	assert.Empty(t, ManualStartHostnames(nil, machines))
}

func TestBuildTunnels(t *testing.T) {
	machines := []models.Machine{
		{ID: 1, Hostname: "island", NetworkInterfaces: []string{"10.0.0.1/24"}, Island: true},
		{ID: 2, Hostname: "relay", NetworkInterfaces: []string{"10.0.0.2/24", "10.0.1.2/24"}},
		{ID: 3, Hostname: "inner", NetworkInterfaces: []string{"10.0.1.3/24"}},
	}
	agents := []models.Agent{
		{ID: "a", MachineID: 2, CCServer: "10.0.0.1:5000"},
		{ID: "b", MachineID: 3, CCServer: "10.0.1.2:5000"},
		{ID: "c", MachineID: 3, CCServer: "10.0.0.1:5000"},
		{ID: "d", MachineID: 2, CCServer: "10.0.0.2:5000"},
		{ID: "e", MachineID: 4, CCServer: "10.0.1.3"},
	}

	tunnels := BuildTunnels(agents, machines)
	require.Len(t, tunnels, 2)
	assert.Equal(t, "3", tunnels[0].MachineID)
	assert.Equal(t, "relay", tunnels[0].Through.Hostname)
	assert.Equal(t, "4", tunnels[1].MachineID)
	assert.Equal(t, "inner", tunnels[1].Through.Hostname)

	got, ok := tunnelFor(tunnels, "3")
	require.True(t, ok)
	assert.Equal(t, 2, got.Through.ID)

	_, ok = tunnelFor(tunnels, "2")
	assert.False(t, ok)
}

func TestSortedMachineIDs(t *testing.T) {
	issues := map[string][]models.Issue{"10": nil, "2": nil, "b": nil, "a": nil, "1": nil}
	assert.Equal(t, []string{"1", "2", "10", "a", "b"}, sortedMachineIDs(issues))
}
