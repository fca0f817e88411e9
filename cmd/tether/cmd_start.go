package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"tether/pkg/config"
	"tether/pkg/coordinator"
	"tether/pkg/inject"
	"tether/pkg/queue"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// DaemonSpawner abstracts spawning the coordinator subprocess for testability.
type DaemonSpawner interface {
	SpawnDaemon() (pid int, err error)
}

// ExecDaemonSpawner spawns a real child process running `tether start --foreground`.
type ExecDaemonSpawner struct{}

// SpawnDaemon forks a child process running the current binary with --foreground.
func (e *ExecDaemonSpawner) SpawnDaemon() (int, error) {
	child := exec.CommandContext(context.Background(), os.Args[0], "start", "--foreground") //nolint:gosec // intentionally re-executing self
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	if err := child.Start(); err != nil {
		return 0, fmt.Errorf("spawn coordinator: %w", err)
	}
	return child.Process.Pid, nil
}

// pidPollTimeout is the maximum time to wait for the coordinator PID file.
const pidPollTimeout = 5 * time.Second

// pidPollInterval is how often to check for the PID file.
const pidPollInterval = 50 * time.Millisecond

// newStartCmd creates the "tether start" subcommand.
func newStartCmd() *cobra.Command {
	var (
		foreground bool
		noSession  bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch the agent session and the message coordinator",
		Long:  "Creates the agent tmux session (unless it already exists) and starts\nthe coordinator that relays queued chat messages into it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return err
			}
			if err := bootstrapTetherHome(paths.TetherHome); err != nil {
				return fmt.Errorf("bootstrap tether dir: %w", err)
			}

			status, pid, err := DaemonStatus(paths.PIDPath)
			if err != nil {
				return err
			}
			switch status {
			case StatusRunning:
				fmt.Fprintf(cmd.OutOrStdout(), "coordinator already running (PID %d)\n", pid)
				return nil
			case StatusStale:
				_ = RemovePIDFile(paths.PIDPath)
			case StatusStopped:
				// Good to go.
			}

			if foreground {
				return runForeground(cmd.Context(), cmd.OutOrStdout(), paths, noSession)
			}
			return runFullStart(cmd.OutOrStdout(), paths, &ExecDaemonSpawner{}, pidPollTimeout)
		},
	}

	cmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "run the coordinator in the foreground instead of daemonizing")
	cmd.Flags().BoolVar(&noSession, "no-session", false, "skip tmux session creation (attach to an existing agent)")

	return cmd
}

// runFullStart spawns the coordinator as a daemon and waits for its PID
// file to appear.
func runFullStart(w io.Writer, paths *Paths, spawner DaemonSpawner, pidTimeout time.Duration) error {
	log := newStartupLog(w, isatty.IsTerminal(os.Stdout.Fd()))

	pid, err := spawner.SpawnDaemon()
	if err != nil {
		return err
	}
	log.Step(fmt.Sprintf("coordinator spawned (PID %d)", pid))

	deadline := time.Now().Add(pidTimeout)
	for time.Now().Before(deadline) {
		if _, statErr := os.Stat(paths.PIDPath); statErr == nil {
			break
		}
		time.Sleep(pidPollInterval)
	}
	if _, err := os.Stat(paths.PIDPath); err != nil {
		return fmt.Errorf("coordinator PID file not ready at %s: %w", paths.PIDPath, err)
	}
	log.Step("coordinator ready")

	fmt.Fprintf(w, "tether started (PID %d)\n", pid)
	return nil
}

// runForeground runs the full stack in this process: agent tmux session,
// event log, queue, and the coordinator loop. Blocks until SIGTERM/SIGINT.
func runForeground(ctx context.Context, w io.Writer, paths *Paths, noSession bool) error {
	cfg, err := config.Load(paths.ConfigPath, paths.TetherHome)
	if err != nil {
		return err
	}
	layout, err := config.LoadLayout(paths.LayoutPath)
	if err != nil {
		return err
	}

	log := newStartupLog(w, isatty.IsTerminal(os.Stdout.Fd()))

	if !noSession {
		stop := log.StartSpinner("creating agent session")
		sess := NewTmuxSession(layout)
		if err := sess.Create(); err != nil {
			return fmt.Errorf("create tmux session: %w", err)
		}
		stop()
	}

	if err := WritePIDFile(paths.PIDPath, os.Getpid()); err != nil {
		return err
	}
	shutdownCtx, cleanup := SetupSignalHandler(ctx, paths.PIDPath)
	defer cleanup()

	events, err := coordinator.OpenEventLog(paths.EventDBPath)
	if err != nil {
		return err
	}
	defer events.Close()

	q := queue.New(cfg.QueueDir)
	if err := q.EnsureDirs(); err != nil {
		return err
	}
	log.Step(fmt.Sprintf("queue ready at %s", cfg.QueueDir))

	pane := &inject.Pane{Target: cfg.PaneTarget, Runner: &ExecRunner{}}
	c := coordinator.New(cfg, q, pane, events)
	c.PruneOrphans(shutdownCtx)
	log.Step(fmt.Sprintf("coordinator running (PID %d, pane %s)", os.Getpid(), cfg.PaneTarget))

	if err := c.Run(shutdownCtx); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	fmt.Fprintln(w, "coordinator stopped")
	return nil
}
