package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// LobbyAction is what the user picked in the lobby.
type LobbyAction int

const (
	LobbyNone LobbyAction = iota
	LobbyCreate
	LobbyJoin
	LobbySpectate
	LobbyVsCPU
)

type lobbyChoice struct {
	action    LobbyAction
	label     string
	needsCode bool
}

var lobbyChoices = []lobbyChoice{
	{LobbyCreate, "Create a new room", false},
	{LobbyJoin, "Join room by code", true},
	{LobbySpectate, "Watch room by code", true},
	{LobbyVsCPU, "Play against the computer", false},
}

const (
	focusName = iota
	focusCode
)

// LobbyModel lets an SSH user pick a name and a room.
type LobbyModel struct {
	name     textinput.Model
	code     textinput.Model
	focus    int
	cursor   int
	keys     LobbyKeyMap
	help     help.Model
	theme    Theme
	err      string
	chosen   LobbyAction
	history  bool
	quitting bool
	width    int
	height   int
}

// NewLobbyModel creates a lobby with name prefilled.
func NewLobbyModel(name string, width, height int) LobbyModel {
	nameInput := textinput.New()
	nameInput.Prompt = "Name: "
	nameInput.Placeholder = "Captain"
	nameInput.CharLimit = game.MaxNameLength
	nameInput.Width = game.MaxNameLength
	nameInput.SetValue(name)
	nameInput.Focus()

	codeInput := textinput.New()
	codeInput.Prompt = "Room: "
	codeInput.Placeholder = "ABC123"
	codeInput.CharLimit = multiplayer.CodeLength + 4
	codeInput.Width = multiplayer.CodeLength + 4

	h := help.New()
	h.ShowAll = false

	return LobbyModel{
		name:   nameInput,
		code:   codeInput,
		keys:   DefaultLobbyKeyMap(),
		help:   h,
		theme:  DefaultTheme(),
		width:  width,
		height: height,
	}
}

// Init initializes the lobby.
func (m LobbyModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m LobbyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.History):
			m.history = true
			return m, nil
		case key.Matches(msg, m.keys.Next):
			return m, m.toggleFocus()
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(lobbyChoices)-1 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, m.keys.Select):
			m.choose()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == focusName {
		m.name, cmd = m.name.Update(msg)
	} else {
		m.code, cmd = m.code.Update(msg)
	}
	return m, cmd
}

func (m *LobbyModel) toggleFocus() tea.Cmd {
	if m.focus == focusName {
		m.focus = focusCode
		m.name.Blur()
		return m.code.Focus()
	}
	m.focus = focusName
	m.code.Blur()
	return m.name.Focus()
}

func (m *LobbyModel) choose() {
	choice := lobbyChoices[m.cursor]
	if choice.needsCode && m.Code() == "" {
		m.err = "Enter a room code first (tab switches field)"
		if m.focus != focusCode {
			m.toggleFocus()
		}
		return
	}
	m.err = ""
	m.chosen = choice.action
}

// View renders the lobby.
func (m LobbyModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(centerText(m.theme.Title.Render("BATTLESHIPS"), m.width))
	b.WriteString("\n\n")
	b.WriteString("  " + m.name.View())
	b.WriteString("\n")
	b.WriteString("  " + m.code.View())
	b.WriteString("\n\n")

	for i, c := range lobbyChoices {
		line := fmt.Sprintf("  %s", c.label)
		style := m.theme.MenuItemNormal
		if i == m.cursor {
			line = fmt.Sprintf("> %s", c.label)
			style = m.theme.MenuItemActive
		}
		b.WriteString("  " + style.Render(line))
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString("\n  ")
		b.WriteString(m.theme.Error.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(m.theme.Help.Render(m.help.View(m.keys)))
	return b.String()
}

// Chosen returns the picked action, or LobbyNone while still choosing.
func (m LobbyModel) Chosen() LobbyAction {
	return m.chosen
}

// Name returns the entered player name.
func (m LobbyModel) Name() string {
	return strings.TrimSpace(m.name.Value())
}

// Code returns the entered room code, normalised.
func (m LobbyModel) Code() multiplayer.RoomCode {
	return multiplayer.NormalizeCode(m.code.Value())
}

// WantsHistory returns true if user asked for the match history.
func (m LobbyModel) WantsHistory() bool {
	return m.history
}

// IsQuitting returns true if user wants to quit entirely.
func (m LobbyModel) IsQuitting() bool {
	return m.quitting
}

// WithError returns the lobby reset for another pick, showing msg.
func (m LobbyModel) WithError(msg string) LobbyModel {
	m.err = msg
	m.chosen = LobbyNone
	m.history = false
	return m
}
