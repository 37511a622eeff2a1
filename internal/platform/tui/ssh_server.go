package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/google/uuid"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
	"github.com/vovakirdan/tui-battleships/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.battleships/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// EventBuffer is the per-session room event buffer.
	EventBuffer int

	// Bot configures the computer opponent for vs-CPU games.
	Bot multiplayer.BotConfig
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		EventBuffer: 64,
		Bot:         multiplayer.BotConfig{ThinkDelay: 600 * time.Millisecond},
	}
}

// SSHServer serves the terminal client over SSH using Wish. It shares the
// coordinator with the HTTP server, so SSH and WebSocket players can meet
// in the same room.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	coord  *multiplayer.Coordinator
	store  *storage.Store
	logger *log.Logger
}

// NewSSHServer creates a new SSH server. store is optional and only
// backs the match history screen; a nil logger discards output.
func NewSSHServer(cfg SSHServerConfig, coord *multiplayer.Coordinator, store *storage.Store, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	srv := &SSHServer{
		config: cfg,
		coord:  coord,
		store:  store,
		logger: logger,
	}

	// Resolve host key path
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".battleships", "host_key")
	}

	// Ensure host key directory exists
	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	held := &heldSeats{}
	go func() {
		<-sshSession.Context().Done()
		held.release()
	}()

	model := NewSessionModel(SessionConfig{
		Coordinator: s.coord,
		Store:       s.store,
		User:        sshSession.User(),
		Width:       pty.Window.Width,
		Height:      pty.Window.Height,
		EventBuffer: s.config.EventBuffer,
		Bot:         s.config.Bot,
		held:        held,
	})

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe blocks serving SSH until Shutdown is called.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("SSH server listening", "address", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// SessionConfig configures one SSH user's session.
type SessionConfig struct {
	Coordinator *multiplayer.Coordinator
	Store       *storage.Store
	User        string
	Width       int
	Height      int
	EventBuffer int
	Bot         multiplayer.BotConfig

	held *heldSeats
}

// heldSeats remembers the subscriptions one SSH connection opened so they
// can be released when the connection drops mid-game.
type heldSeats struct {
	mu       sync.Mutex
	sessions []*multiplayer.ChannelSession
	bots     []*multiplayer.Bot
}

func (h *heldSeats) add(sess *multiplayer.ChannelSession, bot *multiplayer.Bot) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, sess)
	if bot != nil {
		h.bots = append(h.bots, bot)
	}
}

// release closes every held session; rooms drop closed subscribers on
// their next request. Seats stay claimed until they expire.
func (h *heldSeats) release() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sess := range h.sessions {
		sess.Close()
	}
	for _, bot := range h.bots {
		bot.Close()
	}
	h.sessions, h.bots = nil, nil
}

type sessionScreen int

const (
	screenLobby sessionScreen = iota
	screenBoard
	screenHistory
)

// roomEnteredMsg is sent once the session holds a seat or a spectator view.
type roomEnteredMsg struct {
	board BoardConfig
}

// lobbyErrorMsg is sent when entering a room failed.
type lobbyErrorMsg struct {
	err error
}

// SessionModel manages one SSH user's flow: lobby -> board -> lobby.
// It remembers the seats taken during the session so that rejoining a
// room by code reclaims the same player.
type SessionModel struct {
	cfg      SessionConfig
	screen   sessionScreen
	lobby    LobbyModel
	board    *BoardModel
	history  *HistoryModel
	tokens   map[multiplayer.RoomCode]multiplayer.SessionToken
	quitting bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(cfg SessionConfig) SessionModel {
	return SessionModel{
		cfg:    cfg,
		lobby:  NewLobbyModel(cfg.User, cfg.Width, cfg.Height),
		tokens: make(map[multiplayer.RoomCode]multiplayer.SessionToken),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	return m.lobby.Init()
}

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cfg.Width = msg.Width
		m.cfg.Height = msg.Height
	case roomEnteredMsg:
		join := msg.board.Join
		if join.Token != "" {
			m.tokens[join.Code] = join.Token
		}
		board := NewBoardModel(msg.board)
		m.board = &board
		m.screen = screenBoard
		return m, board.Init()
	case lobbyErrorMsg:
		m.lobby = m.lobby.WithError(describeError(msg.err))
		return m, nil
	}

	switch m.screen {
	case screenBoard:
		return m.updateBoard(msg)
	case screenHistory:
		return m.updateHistory(msg)
	}
	return m.updateLobby(msg)
}

func (m SessionModel) updateLobby(msg tea.Msg) (tea.Model, tea.Cmd) {
	newLobby, cmd := m.lobby.Update(msg)
	if lobby, ok := newLobby.(LobbyModel); ok {
		m.lobby = lobby
	}

	if m.lobby.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.lobby.WantsHistory() {
		history := NewHistoryModel(m.cfg.Store, m.lobby.Name(), m.cfg.Width, m.cfg.Height)
		m.history = &history
		m.screen = screenHistory
		m.lobby = m.lobby.WithError("")
		return m, nil
	}

	if action := m.lobby.Chosen(); action != LobbyNone {
		enter := m.enter(action, m.lobby.Code(), m.lobby.Name())
		m.lobby = m.lobby.WithError("")
		return m, enter
	}

	return m, cmd
}

func (m SessionModel) updateBoard(msg tea.Msg) (tea.Model, tea.Cmd) {
	newModel, cmd := m.board.Update(msg)
	if board, ok := newModel.(BoardModel); ok {
		m.board = &board
	}

	if m.board.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.board.BackToMenu() {
		m.board = nil
		m.screen = screenLobby
		return m, nil
	}

	return m, cmd
}

func (m SessionModel) updateHistory(msg tea.Msg) (tea.Model, tea.Cmd) {
	newModel, cmd := m.history.Update(msg)
	if history, ok := newModel.(HistoryModel); ok {
		m.history = &history
	}

	if m.history.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.history.IsGoingBack() {
		m.history = nil
		m.screen = screenLobby
		return m, nil
	}

	return m, cmd
}

// enter returns a command that creates or opens a room and takes a seat.
func (m SessionModel) enter(action LobbyAction, code multiplayer.RoomCode, name string) tea.Cmd {
	cfg := m.cfg
	token := m.tokens[code]
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()

		coord := cfg.Coordinator
		if action == LobbyCreate || action == LobbyVsCPU {
			created, err := coord.CreateRoom(ctx)
			if err != nil {
				return lobbyErrorMsg{err: err}
			}
			code, token = created, ""
		}

		sess := multiplayer.NewChannelSession(multiplayer.SubscriberID("ssh-"+uuid.NewString()), cfg.EventBuffer)
		var (
			res multiplayer.JoinResult
			err error
		)
		if action == LobbySpectate {
			res, err = coord.Spectate(ctx, code, sess)
		} else {
			res, err = coord.Join(ctx, code, token, sess)
		}
		if err != nil {
			sess.Close()
			return lobbyErrorMsg{err: err}
		}

		board := BoardConfig{
			Coordinator: coord,
			Session:     sess,
			Join:        res,
			Name:        name,
			Width:       cfg.Width,
			Height:      cfg.Height,
		}
		if action == LobbyVsCPU {
			bot, err := coord.AddBot(ctx, code, cfg.Bot)
			if err != nil {
				coord.Leave(code, sess.ID())
				sess.Close()
				return lobbyErrorMsg{err: err}
			}
			board.Bot = bot
		}
		cfg.held.add(sess, board.Bot)
		return roomEnteredMsg{board: board}
	}
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.screen {
	case screenBoard:
		return m.board.View()
	case screenHistory:
		return m.history.View()
	}
	return m.lobby.View()
}
