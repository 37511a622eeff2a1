// Package multiplayer hosts battleships rooms. Each room owns one
// authoritative game.State behind a single goroutine; transports reach it
// through the Coordinator and receive updates as Subscribers.
package multiplayer

import (
	"time"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
)

// PlayerID is an alias to core.PlayerID for convenience.
type PlayerID = core.PlayerID

// Re-export seat constants for convenience.
const (
	Spectator = core.Spectator
	Player1   = core.Player1
	Player2   = core.Player2
)

// RoomCode addresses one room. Codes are normalised before use.
type RoomCode string

// SessionToken is the opaque credential binding a party to a player slot.
type SessionToken string

// SubscriberID identifies one connected party (socket, SSH session, bot).
type SubscriberID string

// JoinResult is returned to a party entering a room.
// Spectators get Slot == Spectator and an empty Token.
type JoinResult struct {
	Code     RoomCode
	Slot     PlayerID
	Token    SessionToken
	Snapshot game.Snapshot
	Version  uint64
}

// SubmitRequest carries one action into a room.
type SubmitRequest struct {
	Token    SessionToken
	ActionID string // client-generated; empty disables deduplication
	Action   game.Action
	From     SubscriberID // receives the AckEvent, may be empty
}

// SubmitResult is the outcome of an accepted (or replayed) action.
type SubmitResult struct {
	Slot      PlayerID
	Snapshot  game.Snapshot
	Version   uint64
	Duplicate bool
}

// RoomInfo summarises a room for housekeeping and listings.
type RoomInfo struct {
	Code        RoomCode
	Phase       game.Phase
	Subscribers int
	Occupied    [2]bool
	UpdatedAt   time.Time
	FinishedAt  time.Time
}

// MatchResultSaver is an interface for saving match results.
// This allows rooms to save results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResultData) error
}

// MatchResultData describes a finished match.
type MatchResultData struct {
	RoomCode     string
	Winner       PlayerID
	Player1Name  string
	Player2Name  string
	Shots1       int
	Shots2       int
	DurationSecs int
	FinishedAt   time.Time
}
