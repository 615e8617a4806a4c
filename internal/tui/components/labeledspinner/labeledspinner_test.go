package labeledspinner_test

import (
	"testing"

	"github.com/alkime/jackmixer/internal/tui/components/labeledspinner"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestLabeledSpinner(t *testing.T) {
	m := labeledspinner.New(spinner.Line, "Connecting...")

	v0 := m.View()
	assert.Contains(t, v0, "Connecting...")
	assert.Contains(t, v0, spinner.Line.Frames[0])
	assert.NotContains(t, v0, "\n")

	t.Run("advances on its own ticks", func(t *testing.T) {
		next, cmd := m.Update(m.Spinner.Tick())
		assert.NotNil(t, cmd)
		assert.Contains(t, next.View(), spinner.Line.Frames[1])
	})

	t.Run("ignores other messages", func(t *testing.T) {
		next, cmd := m.Update("unrelated")
		assert.Nil(t, cmd)
		assert.Equal(t, v0, next.View())
	})

	t.Run("status line", func(t *testing.T) {
		v := m.WithStatus("com.example.mixer").View()
		assert.Contains(t, v, "Connecting...\ncom.example.mixer")
		assert.Empty(t, m.Status)
	})
}
