package core

// PlayerID identifies a seat in a room.
// Player1 and Player2 are the two fleets; Spectator is anyone else watching.
type PlayerID int

const (
	Spectator PlayerID = 0
	Player1   PlayerID = 1
	Player2   PlayerID = 2
)

// IsPlayer reports whether p is one of the two playing seats.
func (p PlayerID) IsPlayer() bool {
	return p == Player1 || p == Player2
}

// Other returns the opposing player. Spectator maps to itself.
func (p PlayerID) Other() PlayerID {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return Spectator
	}
}

// Index returns the zero-based array index for a playing seat.
// Callers must check IsPlayer first.
func (p PlayerID) Index() int {
	return int(p) - 1
}

// String returns a human-readable name for the seat.
func (p PlayerID) String() string {
	switch p {
	case Player1:
		return "Player 1"
	case Player2:
		return "Player 2"
	case Spectator:
		return "Spectator"
	default:
		return "Unknown"
	}
}
