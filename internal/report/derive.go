package report

import (
	"net"
	"sort"
	"strconv"

	"github.com/hakim/islandreport/internal/models"
)

// Tunnel records that the agent on one machine reached the Island by relaying
// through another machine.
type Tunnel struct {
	MachineID string
	Through   models.Machine
}

// BuildTunnels derives tunnels from agents whose command-and-control address
// belongs to a machine other than their own and other than the Island.
// Only the first tunnel found for each source machine is kept.
func BuildTunnels(agents []models.Agent, machines []models.Machine) []Tunnel {
	var tunnels []Tunnel
	seen := make(map[int]bool)

	for _, agent := range agents {
		if agent.CCServer == "" || seen[agent.MachineID] {
			continue
		}

		host := agent.CCServer
		if h, _, err := net.SplitHostPort(agent.CCServer); err == nil {
			host = h
		}

		for _, m := range machines {
			if m.Island || m.ID == agent.MachineID || !m.HasIP(host) {
				continue
			}
			tunnels = append(tunnels, Tunnel{
				MachineID: strconv.Itoa(agent.MachineID),
				Through:   m,
			})
			seen[agent.MachineID] = true
			break
		}
	}

	return tunnels
}

// tunnelFor returns the tunnel originating from machineID, if any.
func tunnelFor(tunnels []Tunnel, machineID string) (Tunnel, bool) {
	for _, t := range tunnels {
		if t.MachineID == machineID {
			return t, true
		}
	}
	return Tunnel{}, false
}

// ManualStartHostnames returns the hostnames of machines where an agent was
// started by hand, deduplicated in first-seen order.
func ManualStartHostnames(agents []models.Agent, machines []models.Machine) []string {
	byID := machinesByID(machines)

	var hostnames []string
	seen := make(map[string]struct{})
	for _, agent := range agents {
		if !agent.Manual() {
			continue
		}
		m, ok := byID[strconv.Itoa(agent.MachineID)]
		if !ok {
			continue
		}
		if _, dup := seen[m.Hostname]; dup {
			continue
		}
		seen[m.Hostname] = struct{}{}
		hostnames = append(hostnames, m.Hostname)
	}
	return hostnames
}

// ExploitPercentage returns breached / scanned * 100. ok is false when no
// machines were scanned, in which case there is no meaningful percentage.
func ExploitPercentage(scanned, breached int) (pct float64, ok bool) {
	if scanned == 0 {
		return 0, false
	}
	return float64(breached) / float64(scanned) * 100, true
}

func machinesByID(machines []models.Machine) map[string]models.Machine {
	byID := make(map[string]models.Machine, len(machines))
	for _, m := range machines {
		byID[strconv.Itoa(m.ID)] = m
	}
	return byID
}

// sortedMachineIDs orders issue keys numerically where possible so the
// document is stable across renders.
func sortedMachineIDs(issues map[string][]models.Issue) []string {
	ids := make([]string, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}
