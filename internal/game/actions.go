package game

import "github.com/vovakirdan/tui-battleships/internal/core"

// ActionKind is the wire name of an action.
type ActionKind string

const (
	KindPlace          ActionKind = "place"
	KindDonePlacement  ActionKind = "donePlacement"
	KindFire           ActionKind = "fire"
	KindUndo           ActionKind = "undo"
	KindSetOrientation ActionKind = "setOrientation"
	KindSetName        ActionKind = "setName"
	KindReset          ActionKind = "reset"
)

// Action is a player intent submitted to a room.
// The set of variants is closed; Reduce switches over all of them.
type Action interface {
	Actor() core.PlayerID
	Kind() ActionKind
	action()
}

// Place puts the actor's next ship on the board.
type Place struct {
	Player      core.PlayerID
	Start       core.Coord
	Size        int
	Orientation core.Orientation
}

func (a Place) Actor() core.PlayerID { return a.Player }
func (Place) Kind() ActionKind       { return KindPlace }
func (Place) action()                {}

// DonePlacement marks the actor's fleet as complete.
type DonePlacement struct {
	Player core.PlayerID
}

func (a DonePlacement) Actor() core.PlayerID { return a.Player }
func (DonePlacement) Kind() ActionKind       { return KindDonePlacement }
func (DonePlacement) action()                {}

// FireAt shoots at a cell on the opponent's board.
type FireAt struct {
	Player core.PlayerID
	Target core.Coord
}

func (a FireAt) Actor() core.PlayerID { return a.Player }
func (FireAt) Kind() ActionKind       { return KindFire }
func (FireAt) action()                {}

// Undo removes the actor's most recently placed ship.
type Undo struct {
	Player core.PlayerID
}

func (a Undo) Actor() core.PlayerID { return a.Player }
func (Undo) Kind() ActionKind       { return KindUndo }
func (Undo) action()                {}

// SetOrientation changes the orientation used for the actor's next placements.
type SetOrientation struct {
	Player      core.PlayerID
	Orientation core.Orientation
}

func (a SetOrientation) Actor() core.PlayerID { return a.Player }
func (SetOrientation) Kind() ActionKind       { return KindSetOrientation }
func (SetOrientation) action()                {}

// SetName sets the actor's display name.
type SetName struct {
	Player core.PlayerID
	Name   string
}

func (a SetName) Actor() core.PlayerID { return a.Player }
func (SetName) Kind() ActionKind       { return KindSetName }
func (SetName) action()                {}

// Reset throws the match away and starts over.
type Reset struct {
	Player core.PlayerID
}

func (a Reset) Actor() core.PlayerID { return a.Player }
func (Reset) Kind() ActionKind       { return KindReset }
func (Reset) action()                {}
