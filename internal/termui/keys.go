package termui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the demo.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding

	// Stack
	New     key.Binding
	Burst   key.Binding
	Action  key.Binding
	Dismiss key.Binding
	Pause   key.Binding
	Clear   key.Binding

	// Global
	Quit key.Binding
	Help key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Action, k.Dismiss, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.New, k.Burst, k.Clear},
		{k.Action, k.Dismiss, k.Pause},
		{k.Help, k.Quit},
	}
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
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new notification"),
		),
		Burst: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "burst past capacity"),
		),
		Action: key.NewBinding(
			key.WithKeys("enter", "a"),
			key.WithHelp("enter/a", "take action"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d/x", "dismiss"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause/resume"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear all"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
