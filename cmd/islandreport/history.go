package main

import (
	"fmt"

	"github.com/hakim/islandreport/internal/models"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show report history for the Island",
	Long: `Display a formatted table of previously generated reports.

Reports are listed newest-first. Each row shows the snapshot ID (truncated),
generation time, status, host counters and the number of affected machines.

Use --island to list another Island's history and --limit to cap the rows (default: 10).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		islandURL, _ := cmd.Flags().GetString("island")
		limit, _ := cmd.Flags().GetInt("limit")

		if islandURL == "" {
			islandURL = cfg.Island.URL
		}
		islandURL = storage.IslandKey(islandURL)

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		snaps, err := store.ListSnapshots(islandURL)
		if err != nil {
			return fmt.Errorf("listing reports for %s: %w", islandURL, err)
		}

		if len(snaps) == 0 {
			fmt.Printf("No report history found for %s\n", islandURL)
			return nil
		}

		if limit > 0 && len(snaps) > limit {
			snaps = snaps[:limit]
		}

		const separator = "────────────────────────────────────────────────────────────────────────"

		fmt.Printf("\nReport History for %s\n", islandURL)
		fmt.Println(separator)
		fmt.Printf("  %-3s  %-12s  %-20s  %-9s  %-8s  %-8s  %s\n", "#", "Snapshot", "Generated", "Status", "Scanned", "Breached", "Affected")
		fmt.Println(separator)

		for i, snap := range snaps {
			fmt.Printf("  %-3d  %-12s  %-20s  %-9s  %-8d  %-8d  %d\n",
				i+1,
				shortID(snap.ID),
				snap.GeneratedAt.UTC().Format("2006-01-02 15:04"),
				formatStatus(snap.Status),
				snap.ScannedCount,
				snap.BreachedCount,
				len(snap.MachineIssues))
		}

		fmt.Println(separator)
		fmt.Printf("Total: %d report(s)\n\n", len(snaps))

		return nil
	},
}

// shortID returns the first 8 characters of a UUID followed by "..." for
// compact table display. Falls back to the full ID when shorter than 8 chars.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func formatStatus(s models.SnapshotStatus) string {
	switch s {
	case models.StatusComplete:
		return "complete"
	case models.StatusFailed:
		return "failed"
	case models.StatusLoading:
		return "loading"
	default:
		return string(s)
	}
}

func init() {
	historyCmd.Flags().String("island", "", "Island URL (default: island.url from config)")
	historyCmd.Flags().Int("limit", 10, "Maximum number of reports to display")
	rootCmd.AddCommand(historyCmd)
}
