// Package theme defines the lipgloss styles shared by CLI output and the
// log formatter.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme groups the styles used for terminal output.
type Theme struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Accent  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

// DefaultTheme is the theme used by all incidentd commands.
var DefaultTheme = Theme{
	Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	Title:   lipgloss.NewStyle().Bold(true),
	Accent:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
	Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	Bold:    lipgloss.NewStyle().Bold(true),
}
