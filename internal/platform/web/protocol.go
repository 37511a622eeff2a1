// Package web serves battleships rooms over HTTP and WebSocket.
package web

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
	"github.com/vovakirdan/tui-battleships/internal/multiplayer"
)

// Inbound message types.
const (
	MsgJoin     = "join"
	MsgSpectate = "spectate"
	MsgAction   = "action"
	MsgPing     = "ping"
)

// Outbound message types.
const (
	MsgJoined   = "joined"
	MsgState    = "state"
	MsgAck      = "ack"
	MsgPresence = "presence"
	MsgClosed   = "closed"
	MsgError    = "error"
	MsgPong     = "pong"
)

// Reason codes produced by the transport itself.
const (
	ReasonBadMessage  game.Reason = "BAD_MESSAGE"
	ReasonRateLimited game.Reason = "RATE_LIMITED"
)

var (
	// ErrBadMessage marks input that could not be decoded.
	ErrBadMessage = errors.New("web: bad message")
	// ErrRateLimited is returned when a connection sends too fast.
	ErrRateLimited = errors.New("web: too many messages")
)

// Inbound is a client-to-server envelope. ID is the client action id.
type Inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is a server-to-client envelope.
type Outbound struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// JoinPayload is the optional payload of a join message.
type JoinPayload struct {
	SessionToken string `json:"sessionToken,omitempty"`
}

// ActionPayload is the wire form of a game action.
type ActionPayload struct {
	Type        game.ActionKind  `json:"type"`
	Player      core.PlayerID    `json:"player"`
	Start       *core.Coord      `json:"start,omitempty"`
	Size        int              `json:"size,omitempty"`
	Orientation core.Orientation `json:"orientation,omitempty"`
	R           *int             `json:"r,omitempty"`
	C           *int             `json:"c,omitempty"`
	Name        string           `json:"name,omitempty"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Code    game.Reason `json:"code"`
	Message string      `json:"message"`
}

// JoinedMeta accompanies the joined message.
type JoinedMeta struct {
	Player       core.PlayerID `json:"player"`
	SessionToken string        `json:"sessionToken,omitempty"`
	Version      uint64        `json:"version"`
}

// StateMeta accompanies a state message.
type StateMeta struct {
	Version uint64          `json:"version"`
	Cause   game.ActionKind `json:"cause,omitempty"`
	Actor   core.PlayerID   `json:"actor,omitempty"`
}

// AckMeta accompanies an ack message.
type AckMeta struct {
	Ack       bool   `json:"ack"`
	Version   uint64 `json:"version"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// PresencePayload reports which seats are taken.
type PresencePayload struct {
	Slot     core.PlayerID `json:"slot"`
	Occupied [2]bool       `json:"occupied"`
}

// ClosedPayload explains why the room went away.
type ClosedPayload struct {
	Reason string `json:"reason"`
}

// DecodeAction turns an action payload into a game.Action. Malformed
// payloads wrap ErrBadMessage; unknown action types are rejected with
// UNKNOWN_ACTION.
func DecodeAction(raw json.RawMessage) (game.Action, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrBadMessage)
	}
	var p ActionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	switch p.Type {
	case game.KindPlace:
		if p.Start == nil {
			return nil, fmt.Errorf("%w: place needs start", ErrBadMessage)
		}
		return game.Place{Player: p.Player, Start: *p.Start, Size: p.Size, Orientation: p.Orientation}, nil
	case game.KindDonePlacement:
		return game.DonePlacement{Player: p.Player}, nil
	case game.KindFire:
		if p.R == nil || p.C == nil {
			return nil, fmt.Errorf("%w: fire needs r and c", ErrBadMessage)
		}
		return game.FireAt{Player: p.Player, Target: core.At(*p.R, *p.C)}, nil
	case game.KindUndo:
		return game.Undo{Player: p.Player}, nil
	case game.KindSetOrientation:
		return game.SetOrientation{Player: p.Player, Orientation: p.Orientation}, nil
	case game.KindSetName:
		return game.SetName{Player: p.Player, Name: p.Name}, nil
	case game.KindReset:
		return game.Reset{Player: p.Player}, nil
	}
	return nil, &game.RejectError{Reason: game.ReasonUnknownAction, Message: fmt.Sprintf("unknown action %q", p.Type)}
}

// EncodeEvent converts a room event to its wire envelope.
func EncodeEvent(evt multiplayer.Event) (Outbound, bool) {
	switch e := evt.(type) {
	case multiplayer.StateEvent:
		return Outbound{
			Type:    MsgState,
			Payload: e.Snapshot,
			Meta:    StateMeta{Version: e.Version, Cause: e.Cause, Actor: e.Actor},
		}, true
	case multiplayer.AckEvent:
		return Outbound{
			Type: MsgAck,
			ID:   e.ActionID,
			Meta: AckMeta{Ack: true, Version: e.Version, Duplicate: e.Duplicate},
		}, true
	case multiplayer.PresenceEvent:
		return Outbound{
			Type:    MsgPresence,
			Payload: PresencePayload{Slot: e.Slot, Occupied: e.Occupied},
		}, true
	case multiplayer.ClosedEvent:
		return Outbound{
			Type:    MsgClosed,
			Payload: ClosedPayload{Reason: e.Reason},
		}, true
	}
	return Outbound{}, false
}

// errorMessage builds an error envelope for err.
func errorMessage(id string, err error) Outbound {
	reason := multiplayer.ReasonOf(err)
	switch {
	case errors.Is(err, ErrBadMessage):
		reason = ReasonBadMessage
	case errors.Is(err, ErrRateLimited):
		reason = ReasonRateLimited
	}
	return Outbound{
		Type:    MsgError,
		ID:      id,
		Payload: ErrorPayload{Code: reason, Message: err.Error()},
	}
}
