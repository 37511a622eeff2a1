package game

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// MaxNameLength is the longest display name accepted, in runes.
const MaxNameLength = 24

// Reason is a machine-readable rejection code sent back to clients.
type Reason string

const (
	ReasonInvalidPlayer      Reason = "INVALID_PLAYER"
	ReasonGameOver           Reason = "GAME_OVER"
	ReasonInvalidPhase       Reason = "INVALID_PHASE"
	ReasonAlreadyReady       Reason = "ALREADY_READY"
	ReasonPlacementComplete  Reason = "PLACEMENT_COMPLETE"
	ReasonWrongShipSize      Reason = "WRONG_SHIP_SIZE"
	ReasonInvalidPlacement   Reason = "INVALID_PLACEMENT"
	ReasonIncompleteFleet    Reason = "INCOMPLETE_FLEET"
	ReasonNotReady           Reason = "NOT_READY"
	ReasonNotYourTurn        Reason = "NOT_YOUR_TURN"
	ReasonOutOfBounds        Reason = "OUT_OF_BOUNDS"
	ReasonDuplicateShot      Reason = "DUPLICATE_SHOT"
	ReasonNothingToUndo      Reason = "NOTHING_TO_UNDO"
	ReasonInvalidOrientation Reason = "INVALID_ORIENTATION"
	ReasonInvalidName        Reason = "INVALID_NAME"
	ReasonUnknownAction      Reason = "UNKNOWN_ACTION"
)

// RejectError is returned when an action fails validation.
// The state it was validated against is left untouched.
type RejectError struct {
	Reason  Reason
	Message string
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return "game: rejected: " + string(e.Reason)
	}
	return fmt.Sprintf("game: rejected: %s: %s", e.Reason, e.Message)
}

func reject(reason Reason, format string, args ...any) *RejectError {
	return &RejectError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validate checks whether action may be applied to s.
// It returns nil or a *RejectError naming the first failed precondition.
func Validate(s State, action Action) error {
	if action == nil {
		return reject(ReasonUnknownAction, "no action")
	}
	p := action.Actor()
	if !p.IsPlayer() {
		return reject(ReasonInvalidPlayer, "actor %d is not a player", int(p))
	}

	if s.Phase == PhaseGameOver {
		switch action.(type) {
		case SetName, Reset:
		default:
			return reject(ReasonGameOver, "match is over")
		}
	}

	switch a := action.(type) {
	case Place:
		if err := checkPlacing(s, p); err != nil {
			return err
		}
		want, ok := s.NextSize(p)
		if !ok {
			return reject(ReasonPlacementComplete, "all %d ships placed", engine.FleetSize())
		}
		if a.Size != want {
			return reject(ReasonWrongShipSize, "expected size %d, got %d", want, a.Size)
		}
		o := placeOrientation(s, a)
		if !o.Valid() {
			return reject(ReasonInvalidOrientation, "orientation %q", string(o))
		}
		if !engine.CanPlace(s.SideOf(p).Fleet, a.Start, a.Size, o) {
			return reject(ReasonInvalidPlacement, "size %d at %s %s does not fit", a.Size, a.Start, o)
		}
		return nil

	case DonePlacement:
		if err := checkPlacing(s, p); err != nil {
			return err
		}
		if s.PlaceIndexOf(p) < engine.FleetSize() {
			return reject(ReasonIncompleteFleet, "%d of %d ships placed", s.PlaceIndexOf(p), engine.FleetSize())
		}
		return nil

	case FireAt:
		if !s.BothReady() {
			return reject(ReasonNotReady, "both fleets must be placed first")
		}
		if s.Phase != TurnOf(p) {
			return reject(ReasonNotYourTurn, "it is %s's turn", s.Phase.Turn())
		}
		if !a.Target.InBounds() {
			return reject(ReasonOutOfBounds, "target %s", a.Target)
		}
		if s.SideOf(p).Shots.HasCoord(a.Target) {
			return reject(ReasonDuplicateShot, "already fired at %s", a.Target)
		}
		return nil

	case Undo:
		if err := checkPlacing(s, p); err != nil {
			return err
		}
		if s.PlaceIndexOf(p) <= 0 {
			return reject(ReasonNothingToUndo, "no ships placed")
		}
		return nil

	case SetOrientation:
		if err := checkPlacing(s, p); err != nil {
			return err
		}
		if !a.Orientation.Valid() {
			return reject(ReasonInvalidOrientation, "orientation %q", string(a.Orientation))
		}
		return nil

	case SetName:
		if _, ok := cleanName(a.Name); !ok {
			return reject(ReasonInvalidName, "name must be 1-%d characters", MaxNameLength)
		}
		return nil

	case Reset:
		return nil
	}

	return reject(ReasonUnknownAction, "action %q", string(action.Kind()))
}

// checkPlacing covers the preconditions shared by every placement-phase action.
func checkPlacing(s State, p core.PlayerID) error {
	if s.Phase != PhaseBothPlace {
		return reject(ReasonInvalidPhase, "placement is over")
	}
	if s.IsReady(p) {
		return reject(ReasonAlreadyReady, "%s is already ready", p)
	}
	return nil
}

// placeOrientation falls back to the actor's stored orientation when the
// action does not carry one.
func placeOrientation(s State, a Place) core.Orientation {
	if a.Orientation == "" {
		return s.OrientationOf(a.Player)
	}
	return a.Orientation
}

func cleanName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	return name, n > 0 && n <= MaxNameLength
}

// IsRejection reports whether err is a validation rejection with the given reason.
func IsRejection(err error, reason Reason) bool {
	var re *RejectError
	return errors.As(err, &re) && re.Reason == reason
}
