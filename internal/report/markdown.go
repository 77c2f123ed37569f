package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hakim/islandreport/internal/models"
)

const (
	// LoadingText is the whole document while the report has not loaded.
	LoadingText = "Generating report...\n"

	// ZerologonExploiter is the issue type whose failed password restoration
	// needs a warning.
	ZerologonExploiter = "ZerologonExploiter"

	// NoRemediationText stands in for a missing remediation suggestion.
	NoRemediationText = "No remediation suggestion is available for this issue."

	// ZerologonWarningText precedes the remediation of a Zerologon issue
	// whose password restoration failed.
	ZerologonWarningText = "> **WARNING:** The agent exploited Zerologon but failed to restore the " +
		"domain controller's original machine account password. The domain controller may be " +
		"unable to communicate with other domain members until its password is reset manually. " +
		"Reset the machine account password before applying the remediation below."

	tunnelRemediationText = "Use micro-segmentation policies to allow only the communication " +
		"that machines in this segment require."
)

// View is an immutable snapshot of assembler state that renders to markdown.
type View struct {
	Report                *models.Report
	StolenCredentials     []models.Credential
	ConfiguredCredentials []models.Credential
	Agents                []models.Agent
	Machines              []models.Machine
	GeneratedAt           time.Time
}

// Loading reports whether the report has not arrived yet.
func (v View) Loading() bool {
	return v.Report.IsEmpty()
}

// Markdown renders the document. While loading only LoadingText is produced;
// otherwise the sections are Overview, Segmentation (when there are
// cross-segment issues), Recommendations, Glance and Footer, in that order.
func (v View) Markdown() string {
	if v.Loading() {
		return LoadingText
	}

	var b strings.Builder
	b.WriteString("# Security Report\n\n")
	v.writeOverview(&b)
	if len(v.Report.CrossSegmentIssues) > 0 {
		v.writeSegmentation(&b)
	}
	v.writeRecommendations(&b)
	v.writeGlance(&b)
	v.writeFooter(&b)
	return b.String()
}

// WriteFile renders the view and writes it to outputPath.
func (v View) WriteFile(outputPath string) error {
	if err := os.WriteFile(outputPath, []byte(v.Markdown()), 0644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputPath, err)
	}
	return nil
}

func (v View) writeOverview(b *strings.Builder) {
	o := v.Report.Overview

	b.WriteString("## Overview\n\n")
	if o.StartTime != "" {
		b.WriteString(fmt.Sprintf("The first agent was started on **%s**.", o.StartTime))
		if o.Duration != "" {
			b.WriteString(fmt.Sprintf(" After **%s**, all agents finished propagation attempts.", o.Duration))
		}
		b.WriteString("\n\n")
	}

	manual := ManualStartHostnames(v.Agents, v.Machines)
	if len(manual) > 0 {
		b.WriteString("Agents were started manually on the following machines:\n\n")
		for _, hostname := range manual {
			b.WriteString(fmt.Sprintf("- %s\n", hostname))
		}
		b.WriteString("\n")
	}

	if len(o.ConfigExploits) > 0 {
		b.WriteString("The following exploiters were enabled:\n\n")
		for _, exploit := range o.ConfigExploits {
			b.WriteString(fmt.Sprintf("- %s\n", exploit))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No exploiters were enabled.\n\n")
	}

	if o.ConfigScan {
		b.WriteString("Agents scanned their local networks.\n\n")
	}
	if len(o.ConfigIPs) > 0 {
		b.WriteString(fmt.Sprintf("Agents were configured to scan the following IP ranges: %s\n\n",
			strings.Join(o.ConfigIPs, ", ")))
	}
	if !o.ConfigScan && len(o.ConfigIPs) == 0 {
		b.WriteString("No scan targets were configured.\n\n")
	}
}

func (v View) writeSegmentation(b *strings.Builder) {
	b.WriteString("## Segmentation Issues\n\n")
	b.WriteString("Agents uncovered traffic crossing the following network boundaries.\n\n")

	for _, seg := range v.Report.CrossSegmentIssues {
		b.WriteString(fmt.Sprintf("### %s -> %s\n\n", escapeCell(seg.SourceSubnet), escapeCell(seg.TargetSubnet)))
		if len(seg.Issues) == 0 {
			b.WriteString("None found.\n\n")
			continue
		}

		b.WriteString("| Source | Hostname | Target | Services |\n")
		b.WriteString("|--------|----------|--------|----------|\n")
		for _, f := range seg.Issues {
			services := strings.Join(f.Services, ", ")
			switch {
			case f.IsSelf:
				services = "machine has interfaces in both segments"
			case services == "":
				services = "-"
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				escapeCell(dash(f.Source)), escapeCell(dash(f.Hostname)), escapeCell(dash(f.Target)), escapeCell(services)))
		}
		b.WriteString("\n")
	}
}

func (v View) writeRecommendations(b *strings.Builder) {
	b.WriteString("## Recommendations\n\n")

	issues := v.Report.Recommendations.Issues
	if len(issues) == 0 {
		b.WriteString("No issues were found.\n\n")
		return
	}

	byID := machinesByID(v.Machines)
	tunnels := BuildTunnels(v.Agents, v.Machines)

	for _, id := range sortedMachineIDs(issues) {
		b.WriteString(fmt.Sprintf("### %s\n\n", machineHeading(id, byID)))

		for _, issue := range issues[id] {
			writeIssue(b, issue)
		}

		if t, ok := tunnelFor(tunnels, id); ok {
			writeTunnelIssue(b, id, t, byID)
		}
	}
}

// writeIssue renders one issue. A Zerologon issue whose password restoration
// explicitly failed gets the warning directly before its remediation.
func writeIssue(b *strings.Builder, issue models.Issue) {
	b.WriteString(fmt.Sprintf("#### %s\n\n", issue.Type))

	if issue.Description != "" {
		b.WriteString(strings.TrimSpace(issue.Description))
		b.WriteString("\n\n")
	}

	remediation := strings.TrimSpace(issue.RemediationSuggestion)
	if remediation == "" {
		remediation = NoRemediationText
	}

	b.WriteString("**Remediation:**\n\n")
	if issue.Type == ZerologonExploiter && issue.PasswordRestored != nil && !*issue.PasswordRestored {
		b.WriteString(ZerologonWarningText)
		b.WriteString("\n\n")
	}
	b.WriteString(remediation)
	b.WriteString("\n\n")
}

func writeTunnelIssue(b *strings.Builder, id string, t Tunnel, byID map[string]models.Machine) {
	source := id
	if m, ok := byID[id]; ok {
		source = m.Hostname
	}

	b.WriteString("#### Tunnel\n\n")
	b.WriteString(fmt.Sprintf("The agent on %s relayed its traffic through %s (%s), so machines in this segment can communicate over ports that are not otherwise in use.\n\n",
		dash(source), dash(t.Through.Hostname), formatIPs(t.Through.IPAddresses())))
	b.WriteString("**Remediation:**\n\n")
	b.WriteString(tunnelRemediationText)
	b.WriteString("\n\n")
}

func (v View) writeGlance(b *strings.Builder) {
	g := v.Report.Glance

	b.WriteString("## At a Glance\n\n")
	b.WriteString(fmt.Sprintf("- **Machines scanned:** %d\n", g.ScannedCount))
	b.WriteString(fmt.Sprintf("- **Machines breached:** %d\n", g.BreachedCount))
	b.WriteString(fmt.Sprintf("- **Exploit percentage:** %s\n\n", FormatExploitPercentage(g.ScannedCount, g.BreachedCount)))

	b.WriteString("### Stolen Credentials\n\n")
	writeCredentials(b, v.StolenCredentials, "No credentials were stolen.")

	b.WriteString("### Configured Credentials\n\n")
	writeCredentials(b, v.ConfiguredCredentials, "No credentials were configured.")
}

func writeCredentials(b *strings.Builder, creds []models.Credential, none string) {
	if len(creds) == 0 {
		b.WriteString(none + "\n\n")
		return
	}
	b.WriteString("| Identity | Secret Type |\n")
	b.WriteString("|----------|-------------|\n")
	for _, c := range creds {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(c.IdentityText()), escapeCell(c.SecretType())))
	}
	b.WriteString("\n")
}

func (v View) writeFooter(b *strings.Builder) {
	b.WriteString("---\n\n")
	b.WriteString(fmt.Sprintf("Report generated on %s.\n", v.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
}

// FormatExploitPercentage renders the breach ratio, or "N/A" when nothing was scanned.
func FormatExploitPercentage(scanned, breached int) string {
	pct, ok := ExploitPercentage(scanned, breached)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", pct)
}

func machineHeading(id string, byID map[string]models.Machine) string {
	m, ok := byID[id]
	if !ok {
		return fmt.Sprintf("Unknown machine (%s)", escapeCell(id))
	}
	return fmt.Sprintf("%s (%s)", escapeCell(dash(m.Hostname)), formatIPs(m.IPAddresses()))
}

func formatIPs(ips []string) string {
	if len(ips) == 0 {
		return "-"
	}
	return strings.Join(ips, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
