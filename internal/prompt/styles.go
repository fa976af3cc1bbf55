package prompt

import "github.com/charmbracelet/lipgloss"

var (
	// Accent marks paths and note references.
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))

	// Muted is for hints and secondary detail.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold is for headings.
	Bold = lipgloss.NewStyle().Bold(true)
)
