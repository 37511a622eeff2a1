package multiplayer

import (
	"context"
	"errors"

	"github.com/vovakirdan/tui-battleships/internal/game"
)

var (
	ErrRoomNotFound       = errors.New("multiplayer: room not found")
	ErrRoomFull           = errors.New("multiplayer: room is full")
	ErrInvalidSession     = errors.New("multiplayer: unknown or expired session")
	ErrRoomClosed         = errors.New("multiplayer: room closed")
	ErrStorageUnavailable = errors.New("multiplayer: storage unavailable")
)

// Reason codes for failures outside the game rules.
const (
	ReasonRoomNotFound       game.Reason = "ROOM_NOT_FOUND"
	ReasonRoomFull           game.Reason = "ROOM_FULL"
	ReasonInvalidSession     game.Reason = "INVALID_SESSION"
	ReasonRoomClosed         game.Reason = "ROOM_CLOSED"
	ReasonStorageUnavailable game.Reason = "STORAGE_UNAVAILABLE"
	ReasonTimeout            game.Reason = "TIMEOUT"
	ReasonInternal           game.Reason = "INTERNAL"
)

// ReasonOf maps an error returned by this package to a wire reason code.
func ReasonOf(err error) game.Reason {
	var re *game.RejectError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return re.Reason
	case errors.Is(err, ErrRoomNotFound):
		return ReasonRoomNotFound
	case errors.Is(err, ErrRoomFull):
		return ReasonRoomFull
	case errors.Is(err, ErrInvalidSession):
		return ReasonInvalidSession
	case errors.Is(err, ErrRoomClosed):
		return ReasonRoomClosed
	case errors.Is(err, ErrStorageUnavailable):
		return ReasonStorageUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTimeout
	}
	return ReasonInternal
}
