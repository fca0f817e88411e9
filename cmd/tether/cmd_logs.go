package main

import (
	"fmt"

	"tether/pkg/eventlog"

	"github.com/spf13/cobra"
)

// newLogsCmd creates the "tether logs" subcommand.
func newLogsCmd() *cobra.Command {
	var (
		channel string
		evType  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print coordinator events from the event log",
		Long:  "Queries the coordinator's SQLite event log, newest first.\nFilter by channel or event type.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			reader, err := eventlog.NewReader(paths.EventDBPath)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no event log yet")
				return nil
			}
			defer reader.Close()

			events, err := reader.Query(cmd.Context(), eventlog.QueryOpts{
				Channel:   channel,
				EventType: evType,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching events")
				return nil
			}

			for _, e := range events {
				line := fmt.Sprintf("%s  %-20s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type)
				if e.Channel != "" {
					line += "  #" + e.Channel
				}
				if e.MessageID != "" {
					line += "  " + e.MessageID
				}
				if e.Payload != "" {
					line += "  " + e.Payload
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&channel, "channel", "c", "", "filter by chat channel")
	cmd.Flags().StringVarP(&evType, "type", "t", "", "filter by event type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum events to print")

	return cmd
}
