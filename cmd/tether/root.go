package main

import (
	"fmt"

	"tether/internal/version"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root tether command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tether",
		Short:         "Bridge chat channels to an interactive terminal agent",
		Long:          "tether relays queued chat messages into a tmux-hosted agent session,\nwatches the agent's session log to detect when each turn completes,\nand writes the response back for pickup.",
		Version:       fmt.Sprintf("tether %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newSendCmd(),
		newLogsCmd(),
	)

	return cmd
}
