// Package game holds the authoritative per-room battleships state machine.
// Actions are checked by Validate and applied by Reduce; both are pure.
package game

import (
	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// MaxLogEntries bounds the in-memory event log.
const MaxLogEntries = 50

// Phase is the stage a match is in.
type Phase string

const (
	PhaseBothPlace Phase = "BOTH_PLACE"
	PhaseP1Turn    Phase = "P1_TURN"
	PhaseP2Turn    Phase = "P2_TURN"
	PhaseGameOver  Phase = "GAME_OVER"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseBothPlace, PhaseP1Turn, PhaseP2Turn, PhaseGameOver:
		return true
	}
	return false
}

// TurnOf returns the firing phase that belongs to player p.
func TurnOf(p core.PlayerID) Phase {
	if p == core.Player2 {
		return PhaseP2Turn
	}
	return PhaseP1Turn
}

// Turn returns whose turn it is, or core.Spectator outside the firing phases.
func (p Phase) Turn() core.PlayerID {
	switch p {
	case PhaseP1Turn:
		return core.Player1
	case PhaseP2Turn:
		return core.Player2
	}
	return core.Spectator
}

// Side is one player's half of the match: the ships they own and the
// cells they have fired at on the opponent's board.
type Side struct {
	Fleet engine.Fleet
	Shots engine.KeySet
}

// Clone returns a deep copy of the side.
func (s Side) Clone() Side {
	return Side{Fleet: s.Fleet.Clone(), Shots: s.Shots.Clone()}
}

// LogType names the kind of a log entry.
type LogType string

const (
	LogFire        LogType = "fire"
	LogPlayerReady LogType = "playerReady"
	LogSetName     LogType = "setName"
)

// LogEntry is one line of the public match log.
type LogEntry struct {
	Type    LogType       `json:"type"`
	Player  core.PlayerID `json:"player,omitempty"`
	Target  *core.Coord   `json:"target,omitempty"`
	Hit     bool          `json:"hit,omitempty"`
	Sunk    string        `json:"sunk,omitempty"`
	Win     bool          `json:"win,omitempty"`
	Message string        `json:"message,omitempty"`
}

// State is the complete state of one room's match.
// Index 0 of every per-player array belongs to Player1.
type State struct {
	Phase       Phase
	Sides       [2]Side
	PlaceIndex  [2]int
	Ready       [2]bool
	Orientation [2]core.Orientation
	Winner      core.PlayerID
	Names       map[core.PlayerID]string
	Log         []LogEntry
}

// NewState returns the fresh state every room starts in.
func NewState() State {
	return State{
		Phase: PhaseBothPlace,
		Sides: [2]Side{
			{Fleet: engine.Fleet{}, Shots: engine.NewKeySet()},
			{Fleet: engine.Fleet{}, Shots: engine.NewKeySet()},
		},
		Orientation: [2]core.Orientation{core.Horizontal, core.Horizontal},
		Names:       map[core.PlayerID]string{},
	}
}

// SideOf returns player p's side.
func (s State) SideOf(p core.PlayerID) Side {
	return s.Sides[p.Index()]
}

// IsReady reports whether player p has finished placing.
func (s State) IsReady(p core.PlayerID) bool {
	return s.Ready[p.Index()]
}

// PlaceIndexOf returns how many ships player p has placed.
func (s State) PlaceIndexOf(p core.PlayerID) int {
	return s.PlaceIndex[p.Index()]
}

// OrientationOf returns player p's current placement orientation.
func (s State) OrientationOf(p core.PlayerID) core.Orientation {
	return s.Orientation[p.Index()]
}

// NextSize returns the ship size player p must place next.
func (s State) NextSize(p core.PlayerID) (int, bool) {
	return engine.NextSize(s.PlaceIndexOf(p))
}

// BothReady reports whether both players have finished placing.
func (s State) BothReady() bool {
	return s.Ready[0] && s.Ready[1]
}

// Name returns the display name of player p, falling back to "Player N".
func (s State) Name(p core.PlayerID) string {
	if n, ok := s.Names[p]; ok && n != "" {
		return n
	}
	return p.String()
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := s
	out.Sides = [2]Side{s.Sides[0].Clone(), s.Sides[1].Clone()}
	out.Names = make(map[core.PlayerID]string, len(s.Names))
	for k, v := range s.Names {
		out.Names[k] = v
	}
	out.Log = make([]LogEntry, len(s.Log))
	copy(out.Log, s.Log)
	return out
}

// LastLog returns the most recent log entry, if any.
func (s State) LastLog() (LogEntry, bool) {
	if len(s.Log) == 0 {
		return LogEntry{}, false
	}
	return s.Log[len(s.Log)-1], true
}

func appendLog(log []LogEntry, e LogEntry) []LogEntry {
	log = append(log, e)
	if len(log) > MaxLogEntries {
		log = append([]LogEntry(nil), log[len(log)-MaxLogEntries:]...)
	}
	return log
}
