package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// BoardKeyMap defines the key bindings for the game board.
type BoardKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Rotate   key.Binding
	Select   key.Binding
	Undo     key.Binding
	Done     key.Binding
	AutoFill key.Binding
	Reset    key.Binding
	Help     key.Binding
	Back     key.Binding
	Quit     key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k BoardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Rotate, k.Undo, k.Done, k.AutoFill, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k BoardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Select, k.Rotate, k.Undo, k.Done, k.AutoFill},
		{k.Reset, k.Help, k.Back, k.Quit},
	}
}

// DefaultBoardKeyMap returns default key bindings.
func DefaultBoardKeyMap() BoardKeyMap {
	return BoardKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left/h", "move left"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right/l", "move right"),
		),
		Rotate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rotate"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "place/fire"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo"),
		),
		Done: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "ready"),
		),
		AutoFill: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto-place"),
		),
		Reset: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "new game"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave room"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// LobbyKeyMap defines the key bindings for the lobby.
type LobbyKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Next    key.Binding
	Select  key.Binding
	History key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k LobbyKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Next, k.Select, k.History, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k LobbyKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// DefaultLobbyKeyMap returns default key bindings.
// Letter keys are left to the text inputs.
func DefaultLobbyKeyMap() LobbyKeyMap {
	return LobbyKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "prev choice"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "next choice"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch field"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "match history"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// HotseatKeyMap defines the keys read by the pass-the-keyboard screen.
type HotseatKeyMap struct {
	Continue key.Binding
	Quit     key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HotseatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Continue, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HotseatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// DefaultHotseatKeyMap returns default key bindings.
func DefaultHotseatKeyMap() HotseatKeyMap {
	return HotseatKeyMap{
		Continue: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "ready"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
