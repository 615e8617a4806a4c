package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/alkime/jackmixer/internal/mixer"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the watch view until the user quits or ctx is cancelled.
func Run(ctx context.Context, m mixer.Submitter, interval time.Duration) error {
	p := tea.NewProgram(New(m, interval), tea.WithContext(ctx), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("watch: %w", err)
	}

	return nil
}
