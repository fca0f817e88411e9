package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"tether/pkg/eventlog"

	tea "github.com/charmbracelet/bubbletea"
)

// eventFetchLimit is how many recent events the dashboard displays.
const eventFetchLimit = 50

// eventsMsg carries fetched coordinator events. nil means the event log is
// not readable yet (coordinator never ran).
type eventsMsg []eventlog.Event

// statusMsg carries daemon liveness and queue depths.
type statusMsg struct {
	running    bool
	pid        int
	inbox      int
	processing int
	outbox     int
}

// tetherHome resolves the state directory from TETHER_HOME or ~/.tether.
func tetherHome() string {
	if v := os.Getenv("TETHER_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tether")
}

// fetchEventsCmd reads the tail of the coordinator event log.
func fetchEventsCmd() tea.Cmd {
	return func() tea.Msg {
		dbPath := tetherHome()
		if v := os.Getenv("TETHER_EVENT_DB"); v != "" {
			dbPath = v
		} else {
			dbPath = filepath.Join(dbPath, "events.db")
		}

		reader, err := eventlog.NewReader(dbPath)
		if err != nil {
			// Coordinator may be offline; render an empty table.
			return eventsMsg(nil)
		}
		defer reader.Close()

		events, err := reader.Query(context.Background(), eventlog.QueryOpts{Limit: eventFetchLimit})
		if err != nil {
			return eventsMsg(nil)
		}
		return eventsMsg(events)
	}
}

// fetchStatusCmd checks daemon liveness via the PID file and counts queue
// artifacts on disk.
func fetchStatusCmd() tea.Cmd {
	return func() tea.Msg {
		home := tetherHome()
		var msg statusMsg

		pidPath := filepath.Join(home, "tether.pid")
		if v := os.Getenv("TETHER_PID_PATH"); v != "" {
			pidPath = v
		}
		if data, err := os.ReadFile(pidPath); err == nil { //nolint:gosec // PID file path is controlled by the application
			if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil {
				msg.pid = pid
				msg.running = processAlive(pid)
			}
		}

		queueDir := filepath.Join(home, "queue")
		msg.inbox = countJSONFiles(filepath.Join(queueDir, "inbox"))
		msg.processing = countJSONFiles(filepath.Join(queueDir, "processing"))
		msg.outbox = countJSONFiles(filepath.Join(queueDir, "outbox"))
		return msg
	}
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
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
