package multiplayer

import "github.com/vovakirdan/tui-battleships/internal/game"

// Event is pushed from a room to its subscribers.
type Event interface {
	roomEvent()
}

// StateEvent carries the room's new authoritative snapshot, already
// redacted for the receiving subscriber.
type StateEvent struct {
	Code     RoomCode
	Version  uint64
	Cause    game.ActionKind
	Actor    PlayerID
	Snapshot game.Snapshot
}

func (StateEvent) roomEvent() {}

// AckEvent confirms an action to the subscriber that submitted it.
type AckEvent struct {
	Code      RoomCode
	ActionID  string
	Version   uint64
	Duplicate bool
}

func (AckEvent) roomEvent() {}

// PresenceEvent is broadcast when a player slot is claimed.
type PresenceEvent struct {
	Code     RoomCode
	Slot     PlayerID
	Occupied [2]bool
}

func (PresenceEvent) roomEvent() {}

// ClosedEvent is the last event a subscriber receives from a room.
type ClosedEvent struct {
	Code   RoomCode
	Reason string
}

func (ClosedEvent) roomEvent() {}
