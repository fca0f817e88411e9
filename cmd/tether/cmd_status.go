package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tether/pkg/config"
	"tether/pkg/eventlog"

	"github.com/spf13/cobra"
)

// statusEventLimit is how many recent events "tether status" prints.
const statusEventLimit = 5

// newStatusCmd creates the "tether status" subcommand.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show coordinator and queue state",
		Long:  "Displays coordinator daemon status, agent session health,\nqueue depths, and the most recent coordinator events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			cfg, err := config.Load(paths.ConfigPath, paths.TetherHome)
			if err != nil {
				return err
			}
			layout, err := config.LoadLayout(paths.LayoutPath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}
			switch status {
			case StatusRunning:
				fmt.Fprintf(w, "coordinator: running (PID %d)\n", pid)
			case StatusStale:
				fmt.Fprintf(w, "coordinator: stale PID file (PID %d is dead)\n", pid)
			case StatusStopped:
				fmt.Fprintln(w, "coordinator: stopped")
			}

			sess := NewTmuxSession(layout)
			if sess.Exists() {
				fmt.Fprintf(w, "agent session: %s running\n", layout.Session)
			} else {
				fmt.Fprintf(w, "agent session: %s not running\n", layout.Session)
			}

			printQueueDepths(w, cfg.QueueDir)
			printRecentEvents(cmd, paths.EventDBPath)
			return nil
		},
	}
}

// printQueueDepths reports the artifact count in each queue stage.
func printQueueDepths(w io.Writer, queueDir string) {
	for _, stage := range []string{"inbox", "processing", "outbox"} {
		n := countJSONFiles(filepath.Join(queueDir, stage))
		fmt.Fprintf(w, "%s: %d\n", stage, n)
	}
}

func countJSONFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

// printRecentEvents shows the tail of the coordinator event log. A missing
// or unreadable log is reported, not fatal.
func printRecentEvents(cmd *cobra.Command, dbPath string) {
	w := cmd.OutOrStdout()

	reader, err := eventlog.NewReader(dbPath)
	if err != nil {
		fmt.Fprintln(w, "events: no log yet")
		return
	}
	defer reader.Close()

	events, err := reader.Query(cmd.Context(), eventlog.QueryOpts{Limit: statusEventLimit})
	if err != nil || len(events) == 0 {
		fmt.Fprintln(w, "events: none")
		return
	}

	fmt.Fprintln(w, "recent events:")
	for _, e := range events {
		line := fmt.Sprintf("  %s %s", e.CreatedAt.Format("15:04:05"), e.Type)
		if e.Channel != "" {
			line += " #" + e.Channel
		}
		if e.MessageID != "" {
			line += " " + e.MessageID
		}
		fmt.Fprintln(w, line)
	}
}
