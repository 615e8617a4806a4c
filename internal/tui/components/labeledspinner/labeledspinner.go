// Package labeledspinner is a spinner with a label and a status line, shown
// while the watch view waits on the mixer.
package labeledspinner

import (
	"strings"

	"github.com/alkime/jackmixer/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model renders "<spinner> <label>" and, when set, a muted status line
// underneath.
type Model struct {
	Spinner spinner.Model
	Label   string
	Status  string
}

// New creates a labeled spinner.
func New(s spinner.Spinner, label string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner: sp,
		Label:   label,
	}
}

// Init starts the spinner.
func (ls Model) Init() tea.Cmd {
	return ls.Spinner.Tick
}

// Update advances the spinner on its own tick messages and ignores
// everything else.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	tickMsg, ok := teaMsg.(spinner.TickMsg)
	if !ok {
		return ls, nil
	}

	var cmd tea.Cmd
	ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

	return ls, cmd
}

// WithStatus returns a copy showing status under the label.
func (ls Model) WithStatus(status string) Model {
	ls.Status = status

	return ls
}

func (ls Model) View() string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(ls.Label))

	if ls.Status != "" {
		sb.WriteString("\n")
		sb.WriteString(style.Muted.Render(ls.Status))
	}

	return sb.String()
}
