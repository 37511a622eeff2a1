package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// HotseatSeat is one player who has already joined the shared room.
type HotseatSeat struct {
	Session *multiplayer.ChannelSession
	Join    multiplayer.JoinResult
	Name    string
}

// HotseatConfig describes two players sharing one terminal.
type HotseatConfig struct {
	Coordinator *multiplayer.Coordinator
	Seats       [2]HotseatSeat
	Width       int
	Height      int
	Seed        int64
}

// HotseatModel runs both seats of a room in one program. Keys go to the
// seat that has to act; when that changes, the boards are covered until
// the next player takes the keyboard.
type HotseatModel struct {
	seats   [2]BoardModel
	active  core.PlayerID
	covered bool

	keys  HotseatKeyMap
	help  help.Model
	theme Theme

	width    int
	height   int
	quitting bool
}

// NewHotseatModel creates the model. Seats are ordered by the slot each
// join was granted.
func NewHotseatModel(cfg HotseatConfig) HotseatModel {
	m := HotseatModel{
		active: core.Player1,
		keys:   DefaultHotseatKeyMap(),
		help:   help.New(),
		theme:  DefaultTheme(),
		width:  cfg.Width,
		height: cfg.Height,
	}
	for i, seat := range cfg.Seats {
		board := NewBoardModel(BoardConfig{
			Coordinator: cfg.Coordinator,
			Session:     seat.Session,
			Join:        seat.Join,
			Name:        seat.Name,
			Width:       cfg.Width,
			Height:      cfg.Height,
			Seed:        cfg.Seed + int64(i),
		})
		// Both players sit at this terminal.
		board.occupied = [2]bool{true, true}
		m.seats[seat.Join.Slot.Index()] = board
	}
	m.settle()
	return m
}

// Init starts both seats.
func (m HotseatModel) Init() tea.Cmd {
	return tea.Batch(m.seats[0].Init(), m.seats[1].Init())
}

// Update handles messages. Room traffic reaches both seats, which keep
// only what their own session produced.
func (m HotseatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(msg)
	}
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}

	cmds := make([]tea.Cmd, 0, len(m.seats))
	for i := range m.seats {
		next, cmd := m.seats[i].Update(msg)
		m.seats[i] = next.(BoardModel)
		cmds = append(cmds, cmd)
	}
	m.settle()
	return m, tea.Batch(cmds...)
}

func (m HotseatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}
	if m.covered {
		if key.Matches(msg, m.keys.Continue) {
			m.covered = false
		}
		return m, nil
	}

	i := m.active.Index()
	next, cmd := m.seats[i].Update(msg)
	m.seats[i] = next.(BoardModel)
	if m.seats[i].left {
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}
	m.settle()
	return m, cmd
}

// settle shares the newest snapshot with both seats and covers the
// boards when a different player has to act.
func (m *HotseatModel) settle() {
	snap, version := m.latest()
	for i := range m.seats {
		m.seats[i].apply(snap, version)
	}
	due := dueSeat(snap, m.active)
	if due == m.active {
		return
	}
	m.active = due
	m.covered = true
}

func (m HotseatModel) latest() (game.Snapshot, uint64) {
	newest := m.seats[0]
	if m.seats[1].version > newest.version {
		newest = m.seats[1]
	}
	return newest.snap, newest.version
}

// dueSeat returns the player who has to act next. Placement runs one
// fleet at a time; after the game ends the last player keeps the keyboard.
func dueSeat(snap game.Snapshot, current core.PlayerID) core.PlayerID {
	switch snap.Phase {
	case game.PhaseBothPlace:
		if !snap.Ready[core.Player1.Index()] {
			return core.Player1
		}
		if !snap.Ready[core.Player2.Index()] {
			return core.Player2
		}
	case game.PhaseP1Turn, game.PhaseP2Turn:
		return snap.Phase.Turn()
	}
	return current
}

func (m *HotseatModel) leave() {
	for i := range m.seats {
		m.seats[i].leave()
	}
}

// View renders the active seat, or the cover screen between turns.
func (m HotseatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.covered {
		return m.seats[m.active.Index()].View()
	}

	snap, _ := m.latest()
	name := NameOf(snap, m.active)
	headline := "Pass the keyboard to " + name
	if snap.Phase.Turn() == m.active && !anyShots(snap) {
		headline = name + " starts!"
	}

	lines := []string{m.theme.Title.Render("BATTLESHIPS"), ""}
	if last := len(snap.Log); last > 0 {
		lines = append(lines, m.theme.Log.Render(DescribeLog(snap, snap.Log[last-1])), "")
	}
	lines = append(lines,
		m.theme.Status.Render(headline),
		m.theme.Label.Render("Press enter when "+name+" is ready"),
		"",
		m.theme.Help.Render(m.help.View(m.keys)),
	)
	body := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func anyShots(snap game.Snapshot) bool {
	for _, e := range snap.Log {
		if e.Type == game.LogFire {
			return true
		}
	}
	return false
}

// Active returns the seat that currently holds the keyboard.
func (m HotseatModel) Active() core.PlayerID {
	return m.active
}

// IsQuitting returns true if the players quit.
func (m HotseatModel) IsQuitting() bool {
	return m.quitting
}
