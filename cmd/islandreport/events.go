package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/hakim/islandreport/internal/island"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List agent events recorded by the Island",
	Long: `List agent events, optionally filtered by event type, tag, success and time.

Examples:
  islandreport events --type ExploitationEvent --success false
  islandreport events --tag T1110 --timestamp gt:1760000000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType, _ := cmd.Flags().GetString("type")
		tag, _ := cmd.Flags().GetString("tag")
		successFlag, _ := cmd.Flags().GetString("success")
		timestampFlag, _ := cmd.Flags().GetString("timestamp")

		success, err := island.ParseSuccess(successFlag)
		if err != nil {
			return err
		}
		op, ts, err := island.ParseTimestampConstraint(timestampFlag)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client, err := newIslandClient(ctx)
		if err != nil {
			return err
		}

		events, err := client.AgentEvents(ctx, island.EventFilter{
			Type:        eventType,
			Tag:         tag,
			Success:     success,
			TimestampOp: op,
			Timestamp:   ts,
		})
		if err != nil {
			return fmt.Errorf("listing agent events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No matching events.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Time\tType\tSource\tSuccess\tTags")
		fmt.Fprintln(w, "----\t----\t------\t-------\t----")
		for _, e := range events {
			result := "-"
			if e.Success != nil {
				result = fmt.Sprintf("%t", *e.Success)
			}
			tags := strings.Join(e.Tags, ",")
			if tags == "" {
				tags = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Time().UTC().Format("2006-01-02 15:04:05"), e.Type, e.Source, result, tags)
		}
		w.Flush()

		fmt.Printf("\nTotal: %d event(s)\n", len(events))
		return nil
	},
}

func init() {
	eventsCmd.Flags().String("type", "", "event type, e.g. ExploitationEvent")
	eventsCmd.Flags().String("tag", "", "event tag, e.g. T1110")
	eventsCmd.Flags().String("success", "", "filter by outcome: true or false")
	eventsCmd.Flags().String("timestamp", "", "time constraint: gt:<epoch> or lt:<epoch>")
	rootCmd.AddCommand(eventsCmd)
}
