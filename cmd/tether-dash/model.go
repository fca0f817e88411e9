package main

import (
	"fmt"
	"time"

	"tether/pkg/eventlog"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg is sent by Bubble Tea on every tick interval.
// Used to trigger periodic refresh from the event log and queue dirs.
type tickMsg time.Time

// refreshInterval is how often the dashboard re-reads its data sources.
const refreshInterval = 2 * time.Second

// tickCmd returns a command that sends a tickMsg after the refresh interval.
func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the Bubble Tea model for the tether dashboard.
type Model struct {
	theme  Theme
	styles Styles

	table  table.Model
	status statusMsg

	width  int
	height int
}

// eventColumns defines the event table layout.
func eventColumns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 8},
		{Title: "Event", Width: 20},
		{Title: "Channel", Width: 14},
		{Title: "Message", Width: 12},
		{Title: "Payload", Width: 40},
	}
}

// newModel creates the dashboard model with an empty event table.
func newModel() Model {
	theme := DefaultTheme()

	t := table.New(
		table.WithColumns(eventColumns()),
		table.WithFocused(true),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Foreground(theme.Secondary).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color("0")).
		Background(theme.Primary)
	t.SetStyles(ts)

	return Model{
		theme:  theme,
		styles: NewStyles(theme),
		table:  t,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchEventsCmd(), fetchStatusCmd(), tickCmd())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, tea.Batch(fetchEventsCmd(), fetchStatusCmd())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-6, 3))

	case tickMsg:
		return m, tea.Batch(fetchEventsCmd(), fetchStatusCmd(), tickCmd())

	case eventsMsg:
		m.table.SetRows(eventRows(msg))

	case statusMsg:
		m.status = msg
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// eventRows converts event log entries into table rows.
func eventRows(events []eventlog.Event) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, e := range events {
		rows = append(rows, table.Row{
			e.CreatedAt.Format("15:04:05"),
			e.Type,
			e.Channel,
			e.MessageID,
			e.Payload,
		})
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	header := m.styles.Title.Render("tether")

	var daemon string
	if m.status.running {
		daemon = m.styles.Healthy.Render(fmt.Sprintf("coordinator up (PID %d)", m.status.pid))
	} else {
		daemon = m.styles.Down.Render("coordinator down")
	}

	depths := m.styles.Muted.Render(fmt.Sprintf(
		"inbox %d · processing %d · outbox %d",
		m.status.inbox, m.status.processing, m.status.outbox,
	))

	footer := m.styles.Footer.Render("r refresh · ↑/↓ scroll · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header+"  "+daemon,
		depths,
		"",
		m.table.View(),
		"",
		footer,
	)
}
