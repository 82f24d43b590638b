package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Logs       key.Binding
	LogLevel   key.Binding

	// Navigation
	Up   key.Binding
	Down key.Binding
	Open key.Binding
	Root key.Binding

	// Board actions
	Like    key.Binding
	Dislike key.Binding
	Refresh key.Binding
	Delete  key.Binding

	// Confirm prompt
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Toggle diagnostics"),
		),
		LogLevel: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Cycle log level"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open post"),
		),
		Root: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to board"),
		),

		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Toggle like"),
		),
		Dislike: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Toggle dislike"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Delete post"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n/esc", "Cancel"),
		),
	}
}

// ShortHelp returns key bindings for the command bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Like, k.Dislike, k.Open, k.Refresh, k.Logs, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Root},
		{k.Like, k.Dislike, k.Refresh, k.Delete},
		{k.Logs, k.LogLevel, k.CycleTheme, k.Help, k.Quit},
	}
}
