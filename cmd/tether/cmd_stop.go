package main

import (
	"fmt"

	"tether/pkg/config"

	"github.com/spf13/cobra"
)

// newStopCmd creates the "tether stop" subcommand.
func newStopCmd() *cobra.Command {
	var killSession bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the message coordinator",
		Long:  "Sends SIGTERM to the coordinator daemon. The agent tmux session is\nleft running unless --kill-session is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}

			switch status {
			case StatusStopped:
				fmt.Fprintln(cmd.OutOrStdout(), "coordinator is not running")
			case StatusStale:
				fmt.Fprintln(cmd.OutOrStdout(), "removing stale PID file (process already dead)")
				if err := RemovePIDFile(paths.PIDPath); err != nil {
					return err
				}
			case StatusRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "sending SIGTERM to coordinator (PID %d)\n", pid)
				if err := StopDaemon(paths.PIDPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "stop signal sent")
			}

			if killSession {
				layout, err := config.LoadLayout(paths.LayoutPath)
				if err != nil {
					return err
				}
				sess := NewTmuxSession(layout)
				if !sess.Exists() {
					fmt.Fprintln(cmd.OutOrStdout(), "agent session is not running")
					return nil
				}
				if err := sess.Kill(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "agent session %s killed\n", layout.Session)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&killSession, "kill-session", false, "also kill the agent tmux session")

	return cmd
}
