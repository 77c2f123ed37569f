package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hakim/islandreport/internal/notify"
	"github.com/hakim/islandreport/internal/observability"
	"github.com/hakim/islandreport/internal/pipeline"
	"github.com/hakim/islandreport/internal/report"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the security report for the configured Island",
	Long: `Fetch the security report, credentials, agents and machines from the Island
and render them as a markdown document.

The report is written to {report_dir}/{island}_{timestamp}.md and a summary is
recorded in the history database so 'islandreport diff' can compare runs.
Use --print to write the document to stdout instead.

Examples:
  islandreport generate
  islandreport generate --print
  islandreport generate --timeout 2m --notify-webhook https://hooks.example/report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printOnly, _ := cmd.Flags().GetBool("print")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		webhookURL, _ := cmd.Flags().GetString("notify-webhook")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, err := newIslandClient(ctx)
		if err != nil {
			return err
		}

		store, err := storage.NewStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer store.Close()

		if webhookURL == "" {
			webhookURL = cfg.Notify.WebhookURL
		}

		genCfg := pipeline.GenerateConfig{
			ReportDir: cfg.ReportDir,
			Timeout:   timeout,
			Notifier:  &notify.Notifier{WebhookURL: webhookURL},
			Logger:    observability.GetLogger(),
		}
		if printOnly {
			genCfg.Output = os.Stdout
		} else {
			fmt.Fprintf(os.Stderr, "[*] Generating report for %s\n", client.BaseURL())
		}

		res, err := pipeline.Generate(ctx, genCfg, client, store)
		if err != nil {
			return err
		}

		if printOnly {
			return nil
		}

		snap := res.Snapshot
		fmt.Printf("[+] Report written to %s (%s)\n", snap.ReportPath, res.Elapsed.Round(time.Millisecond))
		fmt.Printf("[*] Snapshot ID: %s\n", snap.ID)
		if res.View.Loading() {
			fmt.Println("[!] The Island has not finished generating its report yet")
			return nil
		}
		g := res.View.Report.Glance
		fmt.Printf("[*] Scanned: %d | Breached: %d | Exploit percentage: %s | Affected machines: %d\n",
			g.ScannedCount, g.BreachedCount,
			report.FormatExploitPercentage(g.ScannedCount, g.BreachedCount),
			len(snap.MachineIssues))

		return nil
	},
}

func init() {
	generateCmd.Flags().Bool("print", false, "write the report to stdout instead of the report directory")
	generateCmd.Flags().Duration("timeout", 5*time.Minute, "overall timeout for the run (0 disables)")
	generateCmd.Flags().String("notify-webhook", "", "webhook URL for a completion notification (overrides notify.webhook_url)")
	rootCmd.AddCommand(generateCmd)
}
