package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/hakim/islandreport/internal/models"
)

// Markdown renders a change report between two snapshots.
func Markdown(res *Result, prev, cur *models.Snapshot) string {
	var b strings.Builder

	b.WriteString("# Report Comparison\n\n")
	b.WriteString(fmt.Sprintf("**Island:** %s\n", cur.Island))
	b.WriteString(fmt.Sprintf("**Previous:** %s (%s)\n", prev.ID, prev.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("**Current:** %s (%s)\n\n", cur.ID, cur.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")))

	b.WriteString("## Summary\n\n")
	b.WriteString(fmt.Sprintf("- **Machines scanned:** %d (%+d)\n", cur.ScannedCount, res.ScannedDelta))
	b.WriteString(fmt.Sprintf("- **Machines breached:** %d (%+d)\n", cur.BreachedCount, res.BreachedDelta))
	b.WriteString(fmt.Sprintf("- **Newly affected machines:** %d\n", len(res.NewlyAffected)))
	b.WriteString(fmt.Sprintf("- **Machines no longer affected:** %d\n\n", len(res.NoLongerHit)))

	b.WriteString("## Newly Affected Machines\n\n")
	if len(res.NewlyAffected) > 0 {
		b.WriteString("| Machine | Issues |\n")
		b.WriteString("|---------|--------|\n")
		for _, m := range res.NewlyAffected {
			b.WriteString(fmt.Sprintf("| %s | %s |\n", m, strings.Join(cur.MachineIssues[m], ", ")))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Machines No Longer Affected\n\n")
	if len(res.NoLongerHit) > 0 {
		for _, m := range res.NoLongerHit {
			b.WriteString(fmt.Sprintf("- %s\n", m))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Changed Machines\n\n")
	if len(res.Changed) > 0 {
		b.WriteString("| Machine | Added | Removed |\n")
		b.WriteString("|---------|-------|---------|\n")
		for _, c := range res.Changed {
			b.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Machine, joinOrDash(c.Added), joinOrDash(c.Removed)))
		}
	} else {
		b.WriteString("None found.\n")
	}
	b.WriteString("\n")

	return b.String()
}

// WriteMarkdown renders the change report and writes it to outputPath.
func WriteMarkdown(res *Result, prev, cur *models.Snapshot, outputPath string) error {
	if err := os.WriteFile(outputPath, []byte(Markdown(res, prev, cur)), 0644); err != nil {
		return fmt.Errorf("writing diff report to %s: %w", outputPath, err)
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
