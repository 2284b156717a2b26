package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the order board.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	LogUp    key.Binding
	LogDown  key.Binding
	LogStart key.Binding
	LogEnd   key.Binding

	// Actions
	Cancel key.Binding // Cancel the selected order

	// View
	Refresh       key.Binding
	ToggleShowAll key.Binding // Include finished orders
	Help          key.Binding

	// General
	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
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
		LogUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll log up"),
		),
		LogDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll log down"),
		),
		LogStart: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "log start"),
		),
		LogEnd: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "log end"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cancel order"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ToggleShowAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "show all"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings to show in the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Cancel, k.ToggleShowAll, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},                             // Orders
		{k.LogUp, k.LogDown, k.LogStart, k.LogEnd}, // Log
		{k.Cancel},                                 // Actions
		{k.Refresh, k.ToggleShowAll, k.Help, k.Quit},
	}
}
