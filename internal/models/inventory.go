package models

import (
	"encoding/json"
	"net/netip"
	"sort"
	"strings"
)

// Agent is a running (or finished) instance of the propagation tool.
type Agent struct {
	ID        string     `json:"id"`
	MachineID int        `json:"machine_id"`
	ParentID  *string    `json:"parent_id"`
	CCServer  string     `json:"cc_server"`
	// Timestamps are kept as sent; the Island does not always include a zone.
	StartTime string  `json:"start_time"`
	StopTime  *string `json:"stop_time,omitempty"`
}

// Manual reports whether the agent was started by hand rather than by
// another agent.
func (a Agent) Manual() bool {
	return a.ParentID == nil || *a.ParentID == ""
}

// Machine is a network host known to the Island.
type Machine struct {
	ID                int      `json:"id"`
	Hostname          string   `json:"hostname"`
	NetworkInterfaces []string `json:"network_interfaces"`
	Island            bool     `json:"island"`
}

// IPAddresses returns the addresses of the machine's network interfaces with
// any prefix length stripped.
func (m Machine) IPAddresses() []string {
	ips := make([]string, 0, len(m.NetworkInterfaces))
	for _, iface := range m.NetworkInterfaces {
		if p, err := netip.ParsePrefix(iface); err == nil {
			ips = append(ips, p.Addr().String())
			continue
		}
		ips = append(ips, iface)
	}
	return ips
}

// HasIP reports whether ip is bound to one of the machine's interfaces.
func (m Machine) HasIP(ip string) bool {
	for _, addr := range m.IPAddresses() {
		if addr == ip {
			return true
		}
	}
	return false
}

// Credential is an opaque credential row. Identity is displayed verbatim;
// only the secret's type is ever displayed.
type Credential struct {
	Identity json.RawMessage `json:"identity"`
	Secret   json.RawMessage `json:"secret"`
}

// IdentityText returns the identity as compact JSON, or "-" when absent.
func (c Credential) IdentityText() string {
	if len(c.Identity) == 0 || string(c.Identity) == "null" {
		return "-"
	}
	var v any
	if err := json.Unmarshal(c.Identity, &v); err != nil {
		return string(c.Identity)
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for _, val := range m {
			if s, ok := val.(string); ok {
				return s
			}
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(c.Identity)
	}
	return string(out)
}

// SecretType returns the field names of the secret object, e.g. "password"
// or "nt_hash", without ever exposing the secret values.
func (c Credential) SecretType() string {
	if len(c.Secret) == 0 || string(c.Secret) == "null" {
		return "-"
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(c.Secret, &fields); err != nil || len(fields) == 0 {
		return "-"
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
