package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/hakim/islandreport/internal/observability"
	"github.com/hakim/islandreport/internal/pipeline"
	"github.com/hakim/islandreport/internal/report"
	"github.com/hakim/islandreport/internal/storage"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a live report file in sync with the Island",
	Long: `Render the security report to a single file and rewrite it whenever new
data arrives. Inventory collections are fetched once; the security report is
polled on --interval. Stop with Ctrl-C.

Examples:
  islandreport watch
  islandreport watch --output live.md --interval 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		interval, _ := cmd.Flags().GetDuration("interval")

		if output == "" {
			if err := storage.EnsureDir(cfg.ReportDir); err != nil {
				return fmt.Errorf("creating report directory: %w", err)
			}
			output = filepath.Join(cfg.ReportDir, "live.md")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, err := newIslandClient(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("[*] Watching %s, writing %s every change (Ctrl-C to stop)\n", client.BaseURL(), output)

		return pipeline.Watch(ctx, pipeline.WatchConfig{
			OutputPath: output,
			Interval:   interval,
			Logger:     observability.GetLogger(),
			OnRender: func(v report.View) {
				if v.Loading() {
					fmt.Printf("[*] %s waiting for the Island report\n", time.Now().Format("15:04:05"))
					return
				}
				fmt.Printf("[+] %s report updated (%d agents, %d machines)\n",
					time.Now().Format("15:04:05"), len(v.Agents), len(v.Machines))
			},
		}, client)
	},
}

func init() {
	watchCmd.Flags().StringP("output", "o", "", "report file to keep updated (default: {report_dir}/live.md)")
	watchCmd.Flags().Duration("interval", 30*time.Second, "security report poll interval")
	rootCmd.AddCommand(watchCmd)
}
