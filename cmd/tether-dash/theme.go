package main

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual styling for the tether dashboard.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// DefaultTheme returns the default theme for tether-dash.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("12"),  // Blue
		Secondary: lipgloss.Color("14"),  // Cyan
		Success:   lipgloss.Color("10"),  // Green
		Warning:   lipgloss.Color("11"),  // Yellow
		Error:     lipgloss.Color("9"),   // Red
		Muted:     lipgloss.Color("240"), // Gray
	}
}

// Styles holds rendered lipgloss styles derived from a Theme.
type Styles struct {
	Title   lipgloss.Style
	Healthy lipgloss.Style
	Down    lipgloss.Style
	Muted   lipgloss.Style
	Footer  lipgloss.Style
}

// NewStyles builds the style set for the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(theme.Primary).Bold(true),
		Healthy: lipgloss.NewStyle().Foreground(theme.Success),
		Down:    lipgloss.NewStyle().Foreground(theme.Error),
		Muted:   lipgloss.NewStyle().Foreground(theme.Muted),
		Footer:  lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
	}
}
