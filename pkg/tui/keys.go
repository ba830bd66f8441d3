package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all review key bindings.
type keyMap struct {
	Accept    key.Binding
	Reject    key.Binding
	Skip      key.Binding
	AcceptAll key.Binding
	Back      key.Binding
	Up        key.Binding
	Down      key.Binding
	PgUp      key.Binding
	PgDown    key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Accept: key.NewBinding(
		key.WithKeys("a", "enter"),
		key.WithHelp("a", "accept"),
	),
	Reject: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reject"),
	),
	Skip: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "skip"),
	),
	AcceptAll: key.NewBinding(
		key.WithKeys("A"),
		key.WithHelp("A", "accept rest"),
	),
	Back: key.NewBinding(
		key.WithKeys("b", "left"),
		key.WithHelp("b", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "scroll down"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}
