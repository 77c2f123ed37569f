package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hakim/islandreport/internal/diff"
	"github.com/hakim/islandreport/internal/models"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare two generated reports and show what changed",
	Long: `Compare two report snapshots of the same Island: machines that became
affected, machines no longer affected, issue types added or removed per machine,
and changes in the scanned and breached counters.

By default the two most recent snapshots are compared. Use --current and
--previous to pick snapshots by ID, and --output to write a markdown change report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		currentID, _ := cmd.Flags().GetString("current")
		previousID, _ := cmd.Flags().GetString("previous")
		output, _ := cmd.Flags().GetString("output")

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		cur, prev, err := resolveSnapshots(store, currentID, previousID)
		if err != nil {
			return err
		}
		if prev == nil {
			fmt.Printf("[!] No previous report found for comparison\n")
			return nil
		}

		fmt.Printf("[*] Current:  %s (%s)\n", cur.ID, cur.GeneratedAt.UTC().Format("2006-01-02 15:04"))
		fmt.Printf("[*] Previous: %s (%s)\n", prev.ID, prev.GeneratedAt.UTC().Format("2006-01-02 15:04"))

		res := diff.Compare(prev, cur)

		if output != "" {
			if err := diff.WriteMarkdown(res, prev, cur, output); err != nil {
				return err
			}
			fmt.Printf("[+] Diff report written to %s\n", output)
		}

		if !res.HasChanges() {
			fmt.Println("[*] No changes between the two reports")
			return nil
		}

		fmt.Printf("[*] Scanned: %+d | Breached: %+d\n", res.ScannedDelta, res.BreachedDelta)
		for _, m := range res.NewlyAffected {
			fmt.Fprintf(os.Stdout, "  [+] %s: %s\n", m, strings.Join(cur.MachineIssues[m], ", "))
		}
		for _, m := range res.NoLongerHit {
			fmt.Fprintf(os.Stdout, "  [-] %s\n", m)
		}
		for _, c := range res.Changed {
			fmt.Fprintf(os.Stdout, "  [~] %s: +%s -%s\n", c.Machine, strings.Join(c.Added, ","), strings.Join(c.Removed, ","))
		}

		return nil
	},
}

// resolveSnapshots loads the snapshots named by ID, falling back to the two
// most recent snapshots of the configured Island. prev is nil when there is
// nothing to compare against.
func resolveSnapshots(store *storage.Store, currentID, previousID string) (cur, prev *models.Snapshot, err error) {
	if currentID != "" {
		if cur, err = store.GetSnapshot(currentID); err != nil {
			return nil, nil, fmt.Errorf("loading snapshot %s: %w", currentID, err)
		}
		if cur == nil {
			return nil, nil, fmt.Errorf("snapshot %s not found", currentID)
		}
	}
	if previousID != "" {
		if prev, err = store.GetSnapshot(previousID); err != nil {
			return nil, nil, fmt.Errorf("loading snapshot %s: %w", previousID, err)
		}
		if prev == nil {
			return nil, nil, fmt.Errorf("snapshot %s not found", previousID)
		}
	}
	if cur != nil && prev != nil {
		return cur, prev, nil
	}

	islandURL := storage.IslandKey(cfg.Island.URL)
	if cur != nil {
		islandURL = cur.Island
	}
	snaps, err := store.ListSnapshots(islandURL)
	if err != nil {
		return nil, nil, fmt.Errorf("listing reports for %s: %w", islandURL, err)
	}

	if cur == nil {
		if len(snaps) == 0 {
			return nil, nil, fmt.Errorf("no reports found for %s. Run 'islandreport generate' first", islandURL)
		}
		cur = snaps[0]
	}
	if prev == nil {
		for _, s := range snaps {
			if s.ID != cur.ID && s.GeneratedAt.Before(cur.GeneratedAt) {
				prev = s
				break
			}
		}
	}
	return cur, prev, nil
}

func init() {
	diffCmd.Flags().String("current", "", "snapshot ID to treat as current (default: latest)")
	diffCmd.Flags().String("previous", "", "snapshot ID to compare against (default: the one before current)")
	diffCmd.Flags().StringP("output", "o", "", "write a markdown change report to this path")
	rootCmd.AddCommand(diffCmd)
}
