// Package style defines lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Variable names omit a "Style" suffix since they're accessed via the
// package (style.Title).
var (
	// Title is used for the view header.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	// Subtitle is used for secondary header text.
	Subtitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	// Error is used for error messages.
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	// Selected marks the strip under the cursor.
	Selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255"))

	// Muted is used for unselected rows and channel counts.
	Muted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	// Cursor is the row marker.
	Cursor = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	// Hot is used for gains above unity.
	Hot = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))
)
