package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-battleships/internal/ai"
	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

const (
	logLines      = 5
	submitTimeout = 5 * time.Second
)

// BoardConfig describes a seat that has already entered a room.
type BoardConfig struct {
	Coordinator *multiplayer.Coordinator
	Session     *multiplayer.ChannelSession
	Join        multiplayer.JoinResult
	Bot         *multiplayer.Bot // optional opponent, stopped when the board leaves
	Name        string           // applied with setName when it differs
	Standalone  bool             // leaving the room ends the program
	Width       int
	Height      int
	Seed        int64
}

// BoardModel is the Bubble Tea model for one seat at a battleships table.
type BoardModel struct {
	coord      *multiplayer.Coordinator
	session    *multiplayer.ChannelSession
	bot        *multiplayer.Bot
	code       multiplayer.RoomCode
	slot       multiplayer.PlayerID
	token      multiplayer.SessionToken
	name       string
	standalone bool

	snap     game.Snapshot
	version  uint64
	occupied [2]bool
	cursor   core.Coord
	failure  string
	closed   string
	rng      *rand.Rand

	keys  BoardKeyMap
	help  help.Model
	theme Theme

	width    int
	height   int
	left     bool
	quitting bool
}

// NewBoardModel creates a board for the seat described by cfg.
func NewBoardModel(cfg BoardConfig) BoardModel {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	h := help.New()
	h.ShowAll = false

	m := BoardModel{
		coord:      cfg.Coordinator,
		session:    cfg.Session,
		bot:        cfg.Bot,
		code:       cfg.Join.Code,
		slot:       cfg.Join.Slot,
		token:      cfg.Join.Token,
		name:       strings.TrimSpace(cfg.Name),
		standalone: cfg.Standalone,
		snap:       cfg.Join.Snapshot,
		version:    cfg.Join.Version,
		rng:        rand.New(rand.NewSource(seed)),
		keys:       DefaultBoardKeyMap(),
		help:       h,
		theme:      DefaultTheme(),
		width:      cfg.Width,
		height:     cfg.Height,
	}
	if m.slot.IsPlayer() {
		m.occupied[m.slot.Index()] = true
	}
	if cfg.Bot != nil {
		m.occupied[cfg.Bot.Slot().Index()] = true
	}
	return m
}

// Init starts listening for room events and applies the player's name.
func (m BoardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{listen(m.session)}
	if m.slot.IsPlayer() && m.name != "" && m.snap.Names[m.slot] != m.name {
		cmds = append(cmds, m.submit(game.SetName{Player: m.slot, Name: m.name}))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		if !m.owns(msg.from) {
			return m, nil
		}
		return m.handleEvent(msg.evt)

	case sessionEndedMsg:
		return m, nil

	case actionResultMsg:
		if !m.owns(msg.from) {
			return m, nil
		}
		if msg.err != nil {
			m.failure = describeError(msg.err)
			return m, nil
		}
		m.failure = ""
		m.apply(msg.res.Snapshot, msg.res.Version)
		return m, nil
	}
	return m, nil
}

func (m BoardModel) owns(from multiplayer.SubscriberID) bool {
	return from == "" || from == m.session.ID()
}

func (m BoardModel) handleEvent(evt multiplayer.Event) (tea.Model, tea.Cmd) {
	switch e := evt.(type) {
	case multiplayer.StateEvent:
		m.apply(e.Snapshot, e.Version)
	case multiplayer.PresenceEvent:
		m.occupied = e.Occupied
	case multiplayer.ClosedEvent:
		m.closed = e.Reason
		if m.closed == "" {
			m.closed = "room closed"
		}
		return m, nil
	}
	return m, listen(m.session)
}

// apply adopts snap unless a newer version has already been seen.
func (m *BoardModel) apply(snap game.Snapshot, version uint64) {
	if version < m.version {
		return
	}
	m.snap = snap
	m.version = version
}

func (m BoardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.leave()
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.leave()
		if m.standalone {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.move(-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.move(1, 0)
		return m, nil
	case key.Matches(msg, m.keys.Left):
		m.move(0, -1)
		return m, nil
	case key.Matches(msg, m.keys.Right):
		m.move(0, 1)
		return m, nil
	}

	if !m.slot.IsPlayer() || m.closed != "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Rotate):
		return m, m.submit(game.SetOrientation{Player: m.slot, Orientation: m.orientation().Toggle()})

	case key.Matches(msg, m.keys.Select):
		if m.snap.Phase == game.PhaseBothPlace {
			size, ok := m.nextSize()
			if !ok {
				m.failure = "fleet complete: press d when ready"
				return m, nil
			}
			return m, m.submit(game.Place{Player: m.slot, Start: m.cursor, Size: size})
		}
		return m, m.submit(game.FireAt{Player: m.slot, Target: m.cursor})

	case key.Matches(msg, m.keys.Undo):
		return m, m.submit(game.Undo{Player: m.slot})

	case key.Matches(msg, m.keys.Done):
		return m, m.submit(game.DonePlacement{Player: m.slot})

	case key.Matches(msg, m.keys.AutoFill):
		return m.autoPlace()

	case key.Matches(msg, m.keys.Reset):
		return m, m.submit(game.Reset{Player: m.slot})
	}
	return m, nil
}

func (m *BoardModel) move(dr, dc int) {
	next := m.cursor.Add(dr, dc)
	if next.InBounds() {
		m.cursor = next
	}
}

// autoPlace places every remaining ship at random around the ones
// already on the board.
func (m BoardModel) autoPlace() (tea.Model, tea.Cmd) {
	if m.snap.Phase != game.PhaseBothPlace || m.snap.Ready[m.slot.Index()] {
		m.failure = "auto-place only works while placing"
		return m, nil
	}
	placements := ai.CompletePlacements(m.rng, m.ownFleet())
	if placements == nil {
		m.failure = "the remaining ships do not fit: undo a few and retry"
		return m, nil
	}
	actions := make([]game.Action, 0, len(placements))
	for _, p := range placements {
		actions = append(actions, game.Place{Player: m.slot, Start: p.Start, Size: p.Size, Orientation: p.Orientation})
	}
	return m, m.submit(actions...)
}

// submit returns a command applying actions in order, stopping at the
// first failure.
func (m BoardModel) submit(actions ...game.Action) tea.Cmd {
	coord, code, token, from := m.coord, m.code, m.token, m.session.ID()
	return func() tea.Msg {
		var last actionResultMsg
		for _, action := range actions {
			ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
			res, err := coord.Submit(ctx, code, multiplayer.SubmitRequest{
				Token:    token,
				ActionID: uuid.NewString(),
				Action:   action,
				From:     from,
			})
			cancel()
			last = actionResultMsg{from: from, kind: action.Kind(), res: res, err: err}
			if err != nil {
				break
			}
		}
		return last
	}
}

// leave unsubscribes from the room, keeping the seat until it expires.
func (m *BoardModel) leave() {
	if m.left {
		return
	}
	m.left = true
	m.coord.Leave(m.code, m.session.ID())
	m.session.Close()
	if m.bot != nil {
		m.bot.Close()
	}
}

func (m BoardModel) orientation() core.Orientation {
	if o := m.snap.Orientation[m.slot.Index()]; o.Valid() {
		return o
	}
	return core.Horizontal
}

func (m BoardModel) nextSize() (int, bool) {
	return engine.NextSize(m.snap.PlaceIndex[m.slot.Index()])
}

func (m BoardModel) ownFleet() engine.Fleet {
	ships := m.snap.Sides[m.slot.Index()].Fleet
	fleet := make(engine.Fleet, 0, len(ships))
	for _, s := range ships {
		fleet = append(fleet, engine.Ship{ID: s.ID, Size: s.Size, Coords: s.Coords, Hits: engine.NewKeySet(s.Hits...)})
	}
	return fleet
}

func (m BoardModel) placing() bool {
	return m.slot.IsPlayer() && m.snap.Phase == game.PhaseBothPlace && !m.snap.Ready[m.slot.Index()]
}

func (m BoardModel) myTurn() bool {
	return m.slot.IsPlayer() && m.snap.Phase.Turn() == m.slot
}

// describeError renders a failed submit for the status line.
func describeError(err error) string {
	var re *game.RejectError
	if errors.As(err, &re) && re.Message != "" {
		return fmt.Sprintf("%s: %s", re.Reason, re.Message)
	}
	return fmt.Sprintf("%s: %v", multiplayer.ReasonOf(err), err)
}

// View renders the board.
func (m BoardModel) View() string {
	if m.quitting || m.left {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf("%s  %s  %s",
		m.theme.Title.Render("BATTLESHIPS"),
		m.theme.Label.Render("room")+" "+m.theme.Code.Render(string(m.code)),
		m.theme.Label.Render("you: ")+m.theme.Value.Render(m.seatLabel()),
	)
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString(m.renderBoards())
	b.WriteString("\n")

	b.WriteString(m.theme.Status.Render(m.phaseText()))
	b.WriteString("\n")
	if m.closed != "" {
		b.WriteString(m.theme.Error.Render("Room closed: " + m.closed))
		b.WriteString("\n")
	} else if m.failure != "" {
		b.WriteString(m.theme.Error.Render(m.failure))
		b.WriteString("\n")
	}

	if lines := m.logTail(); len(lines) > 0 {
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(m.theme.Log.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m BoardModel) seatLabel() string {
	if !m.slot.IsPlayer() {
		return "spectating"
	}
	return fmt.Sprintf("%s (%s)", NameOf(m.snap, m.slot), m.slot)
}

// renderBoards draws the two boards side by side. Players see their own
// fleet on the left; spectators see Player 1 on the left.
func (m BoardModel) renderBoards() string {
	leftOwner, rightOwner := core.Player1, core.Player2
	if m.slot.IsPlayer() {
		leftOwner, rightOwner = m.slot, m.slot.Other()
	}

	var leftMark, rightMark highlight
	leftFrame, rightFrame := m.theme.Frame, m.theme.Frame
	cursor := m.cursor
	switch {
	case m.placing():
		leftMark = m.placementPreview()
		leftFrame = m.theme.ActiveFrame
	case m.myTurn():
		rightMark = highlight{cursor: &cursor}
		rightFrame = m.theme.ActiveFrame
	}

	leftTitle, rightTitle := NameOf(m.snap, leftOwner), NameOf(m.snap, rightOwner)
	if m.slot.IsPlayer() {
		leftTitle = "Your fleet"
		rightTitle = "Enemy waters: " + NameOf(m.snap, rightOwner)
		if !m.occupied[rightOwner.Index()] {
			rightTitle += " (away)"
		}
	}

	left := leftFrame.Render(m.boardTitle(leftTitle, leftOwner) + "\n" +
		RenderGrid(m.theme, BoardGrid(m.snap, leftOwner), leftMark))
	right := rightFrame.Render(m.boardTitle(rightTitle, rightOwner) + "\n" +
		RenderGrid(m.theme, BoardGrid(m.snap, rightOwner), rightMark))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

func (m BoardModel) boardTitle(title string, owner core.PlayerID) string {
	afloat := m.snap.Sides[owner.Index()].ShipsAfloat
	return m.theme.Value.Render(title) + m.theme.Label.Render(fmt.Sprintf("  afloat %d", afloat))
}

// placementPreview shows where the next ship would go.
func (m BoardModel) placementPreview() highlight {
	cursor := m.cursor
	size, ok := m.nextSize()
	if !ok {
		return highlight{cursor: &cursor}
	}
	o := m.orientation()
	var cells []core.Coord
	for _, c := range engine.CoordsFor(m.cursor, size, o) {
		if c.InBounds() {
			cells = append(cells, c)
		}
	}
	return highlight{
		cursor:  &cursor,
		preview: cells,
		blocked: !engine.CanPlace(m.ownFleet(), m.cursor, size, o),
	}
}

func (m BoardModel) phaseText() string {
	switch m.snap.Phase {
	case game.PhaseBothPlace:
		if !m.slot.IsPlayer() {
			return "Fleets are being placed"
		}
		if m.snap.Ready[m.slot.Index()] {
			return "Fleet ready. Waiting for " + NameOf(m.snap, m.slot.Other())
		}
		if size, ok := m.nextSize(); ok {
			dir := "horizontal"
			if m.orientation() == core.Vertical {
				dir = "vertical"
			}
			return fmt.Sprintf("Place your %d-cell ship (%s)", size, dir)
		}
		return "Fleet complete. Press d when ready"

	case game.PhaseP1Turn, game.PhaseP2Turn:
		turn := m.snap.Phase.Turn()
		if turn == m.slot {
			return "Your turn: fire at the enemy waters"
		}
		return NameOf(m.snap, turn) + " is aiming"

	case game.PhaseGameOver:
		winner := m.snap.Winner
		switch {
		case winner == m.slot:
			return "Victory! Press x for a rematch"
		case m.slot.IsPlayer():
			return NameOf(m.snap, winner) + " wins. Press x for a rematch"
		default:
			return NameOf(m.snap, winner) + " wins"
		}
	}
	return string(m.snap.Phase)
}

func (m BoardModel) logTail() []string {
	entries := m.snap.Log
	if len(entries) > logLines {
		entries = entries[len(entries)-logLines:]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, DescribeLog(m.snap, e))
	}
	return out
}

// IsQuitting returns true if user requested to quit entirely.
func (m BoardModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user left the room.
func (m BoardModel) BackToMenu() bool {
	return m.left && !m.quitting
}

// Code returns the room code.
func (m BoardModel) Code() multiplayer.RoomCode {
	return m.code
}
