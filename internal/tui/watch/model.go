// Package watch is the live view of a running mixer.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/alkime/jackmixer/internal/tui/components/labeledspinner"
	"github.com/alkime/jackmixer/internal/tui/style"
	"github.com/alkime/jackmixer/pkg/uictl"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	gainStep   = 5
	unity      = 100
	barWidth   = 30
	nameWidth  = 16
	callBudget = 5 * time.Second
)

type stateMsg struct {
	strips []mixer.StripInfo
	err    error
}

type tickMsg struct{}

type gainSetMsg struct {
	strip string
	err   error
}

// Model polls a mixer and lets the user adjust strip gains.
type Model struct {
	mixer    mixer.Submitter
	interval time.Duration

	keys       KeyMap
	help       help.Model
	bar        progress.Model
	connecting labeledspinner.Model

	strips   []mixer.StripInfo
	cursor   int
	loaded   bool
	err      error
	quitting bool
}

// New creates a watch model polling m every interval.
func New(m mixer.Submitter, interval time.Duration) Model {
	return Model{
		mixer:      m,
		interval:   interval,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		connecting: labeledspinner.New(spinner.Line, "Connecting..."),
		bar: progress.New(
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
			progress.WithSolidFill("63"),
		),
	}
}

// Init fetches the first state.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.connecting.Init())
}

// Update handles polling results and key presses.
func (m Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch teaMsg := teaMsg.(type) {
	case stateMsg:
		if teaMsg.err != nil {
			m.err = teaMsg.err
		} else {
			m.err = nil
			m.strips = teaMsg.strips
			m.loaded = true
			m.cursor = min(m.cursor, max(len(m.strips)-1, 0))
		}

		return m, m.tick()

	case tickMsg:
		return m, m.fetch()

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}

		var cmd tea.Cmd
		m.connecting, cmd = m.connecting.Update(teaMsg)

		return m, cmd

	case gainSetMsg:
		if teaMsg.err != nil {
			m.err = fmt.Errorf("set gain on %s: %w", teaMsg.strip, teaMsg.err)
		}

		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = teaMsg.Width

		return m, nil

	case tea.KeyMsg:
		return m.handleKey(teaMsg)
	}

	return m, nil
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(k, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
		return m, nil
	case key.Matches(k, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.strips)-1, 0))
		return m, nil
	case key.Matches(k, m.keys.Lower):
		return m.setGain(func(f uictl.Fader[int]) uictl.Fader[int] { return f.Nudge(-gainStep) })
	case key.Matches(k, m.keys.Raise):
		return m.setGain(func(f uictl.Fader[int]) uictl.Fader[int] { return f.Nudge(gainStep) })
	case key.Matches(k, m.keys.Mute):
		return m.setGain(func(f uictl.Fader[int]) uictl.Fader[int] { return f.Set(0) })
	case key.Matches(k, m.keys.Unity):
		return m.setGain(func(f uictl.Fader[int]) uictl.Fader[int] { return f.Set(unity) })
	}

	return m, nil
}

// setGain applies move to the selected strip's fader optimistically and
// sends the new value to the mixer.
func (m Model) setGain(move func(uictl.Fader[int]) uictl.Fader[int]) (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.strips) {
		return m, nil
	}

	strip := m.strips[m.cursor]
	percent := move(fader(strip)).Read()
	if percent == strip.GainPercent() {
		return m, nil
	}

	factor, err := mixer.GainFromPercent(percent)
	if err != nil {
		m.err = err
		return m, nil
	}

	strips := append([]mixer.StripInfo(nil), m.strips...)
	strips[m.cursor].GainFactor = factor
	m.strips = strips

	submitter := m.mixer
	name := strip.Name

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callBudget)
		defer cancel()

		_, err := submitter.Submit(ctx, mixer.SetGainFactor{Name: name, Factor: factor})

		return gainSetMsg{strip: name, err: err}
	}
}

func (m Model) fetch() tea.Cmd {
	submitter := m.mixer

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callBudget)
		defer cancel()

		resp, err := submitter.Submit(ctx, mixer.GetState{})
		if err != nil {
			return stateMsg{err: err}
		}

		strips, err := mixer.ParseState(resp.State)

		return stateMsg{strips: strips, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// View renders one row per strip.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(style.Title.Render("jackmixer"))
	sb.WriteString(" ")
	sb.WriteString(style.Subtitle.Render(fmt.Sprintf("%d strips", len(m.strips))))
	sb.WriteString("\n\n")

	switch {
	case !m.loaded && m.err == nil:
		sb.WriteString(m.connecting.View())
		sb.WriteString("\n")
	case m.loaded && len(m.strips) == 0:
		sb.WriteString(style.Muted.Render("No strips."))
		sb.WriteString("\n")
	}

	for i, strip := range m.strips {
		sb.WriteString(m.renderRow(strip, i == m.cursor))
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(style.Error.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return sb.String()
}

func (m Model) renderRow(strip mixer.StripInfo, selected bool) string {
	cursor := "  "
	name := style.Muted.Render(fmt.Sprintf("%-*s", nameWidth, strip.Name))
	if selected {
		cursor = style.Cursor.Render("> ")
		name = style.Selected.Render(fmt.Sprintf("%-*s", nameWidth, strip.Name))
	}

	percent := fmt.Sprintf("%4d%%", strip.GainPercent())
	if strip.GainPercent() > unity {
		percent = style.Hot.Render(percent)
	}

	return fmt.Sprintf("%s%s %s %s %s",
		cursor,
		name,
		style.Muted.Render(fmt.Sprintf("%3dch", strip.Channels)),
		m.bar.ViewAs(fader(strip).Ratio()),
		percent,
	)
}

func fader(strip mixer.StripInfo) uictl.Fader[int] {
	return uictl.NewFader(strip.GainPercent(), 0, mixer.MaxGainPercent)
}
