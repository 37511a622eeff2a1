package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// Config holds configuration for the HTTP server.
type Config struct {
	Addr             string
	AllowedOrigins   []string // empty allows any origin
	ActionsPerSecond float64
	Burst            int
	EventBuffer      int
	RequestTimeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		ActionsPerSecond: 10,
		Burst:            20,
		EventBuffer:      64,
		RequestTimeout:   5 * time.Second,
	}
}

// Server exposes a Coordinator over HTTP and WebSocket.
type Server struct {
	coord    *multiplayer.Coordinator
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
	http     *http.Server
}

// NewServer creates a server. A nil logger discards output.
func NewServer(coord *multiplayer.Coordinator, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	s := &Server{
		coord:  coord,
		cfg:    cfg,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/api/rooms/{code}", s.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws/{code}", s.handleWS).Methods(http.MethodGet)
	s.router = r

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.coord.RoomCount(),
	})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	code, err := s.coord.CreateRoom(ctx)
	if err != nil {
		s.logger.Error("create room", "err", err)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"code": code})
}

// handleGetRoom serves the spectator view for clients that poll.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	code := multiplayer.RoomCode(mux.Vars(r)["code"])
	snap, version, err := s.coord.Snapshot(ctx, code, multiplayer.Spectator)
	switch {
	case errors.Is(err, multiplayer.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":     multiplayer.NormalizeCode(string(code)),
		"version":  version,
		"snapshot": snap,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code := multiplayer.NormalizeCode(mux.Vars(r)["code"])
	if code == "" {
		writeError(w, http.StatusNotFound, multiplayer.ErrRoomNotFound)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := newConn(s, ws, code)
	s.logger.Debug("websocket connected", "room", code, "conn", c.id, "remote", r.RemoteAddr)

	go c.writeLoop()
	c.readLoop()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorPayload{Code: multiplayer.ReasonOf(err), Message: err.Error()})
}
