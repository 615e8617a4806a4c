package watch

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the watch view.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Lower key.Binding
	Raise key.Binding
	Mute  key.Binding
	Unity key.Binding
	Quit  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Lower: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "-5%"),
		),
		Raise: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "+5%"),
		),
		Mute: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "mute"),
		),
		Unity: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "unity"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the short help bindings.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Lower, k.Raise, k.Mute, k.Unity, k.Quit}
}

// FullHelp returns the full help bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Lower, k.Raise, k.Mute, k.Unity},
		{k.Quit},
	}
}
