package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// ErrRedacted is returned when restoring a snapshot that had fleets hidden.
var ErrRedacted = errors.New("game: snapshot is redacted")

// ShipSnapshot is the wire form of one ship.
type ShipSnapshot struct {
	ID     string       `json:"id"`
	Size   int          `json:"size"`
	Coords []core.Coord `json:"coords"`
	Hits   []string     `json:"hits"`
}

// SideSnapshot is the wire form of one side.
//
// Hits lists every hit cell on this side's fleet and ShipsAfloat counts its
// unsunk ships, so a viewer can draw a board whose fleet is hidden.
type SideSnapshot struct {
	Fleet       []ShipSnapshot `json:"fleet"`
	Shots       []string       `json:"shots"`
	Hits        []string       `json:"hits"`
	ShipsAfloat int            `json:"shipsAfloat"`
	Hidden      bool           `json:"hidden,omitempty"`
}

// Snapshot is the serialisable form of a State. Every set becomes a
// row-major sorted list of "row,col" keys.
type Snapshot struct {
	Phase       Phase                    `json:"phase"`
	Sides       [2]SideSnapshot          `json:"sides"`
	PlaceIndex  [2]int                   `json:"placeIndex"`
	Ready       [2]bool                  `json:"ready"`
	Orientation [2]core.Orientation      `json:"orientation"`
	Winner      core.PlayerID            `json:"winner"`
	Names       map[core.PlayerID]string `json:"names"`
	Log         []LogEntry               `json:"log"`
}

// ToSnapshot converts s into its wire form.
func ToSnapshot(s State) Snapshot {
	snap := Snapshot{
		Phase:       s.Phase,
		PlaceIndex:  s.PlaceIndex,
		Ready:       s.Ready,
		Orientation: s.Orientation,
		Winner:      s.Winner,
		Names:       make(map[core.PlayerID]string, len(s.Names)),
	}
	for i, side := range s.Sides {
		snap.Sides[i] = sideSnapshot(side)
	}
	for k, v := range s.Names {
		snap.Names[k] = v
	}
	log := s.Log
	if len(log) > MaxLogEntries {
		log = log[len(log)-MaxLogEntries:]
	}
	snap.Log = append([]LogEntry{}, log...)
	return snap
}

func sideSnapshot(side Side) SideSnapshot {
	out := SideSnapshot{
		Fleet: make([]ShipSnapshot, 0, len(side.Fleet)),
		Shots: side.Shots.Sorted(),
	}
	hits := engine.NewKeySet()
	for _, ship := range side.Fleet {
		coords := make([]core.Coord, len(ship.Coords))
		copy(coords, ship.Coords)
		out.Fleet = append(out.Fleet, ShipSnapshot{
			ID:     ship.ID,
			Size:   ship.Size,
			Coords: coords,
			Hits:   ship.Hits.Sorted(),
		})
		for k := range ship.Hits {
			hits.Add(k)
		}
		if !ship.IsSunk() {
			out.ShipsAfloat++
		}
	}
	out.Hits = hits.Sorted()
	return out
}

// FromSnapshot rebuilds a State from its wire form. Keys, ship geometry and
// phase gating are checked so a corrupt record cannot produce an impossible
// state.
func FromSnapshot(snap Snapshot) (State, error) {
	if !snap.Phase.Valid() {
		return State{}, fmt.Errorf("game: unknown phase %q", snap.Phase)
	}
	s := State{
		Phase:       snap.Phase,
		PlaceIndex:  snap.PlaceIndex,
		Ready:       snap.Ready,
		Orientation: snap.Orientation,
		Winner:      snap.Winner,
		Names:       make(map[core.PlayerID]string, len(snap.Names)),
		Log:         append([]LogEntry{}, snap.Log...),
	}
	for i, side := range snap.Sides {
		if side.Hidden {
			return State{}, ErrRedacted
		}
		restored, err := sideFromSnapshot(side)
		if err != nil {
			return State{}, fmt.Errorf("game: side %d: %w", i+1, err)
		}
		s.Sides[i] = restored
		if s.PlaceIndex[i] != len(restored.Fleet) {
			return State{}, fmt.Errorf("game: side %d: place index %d does not match %d ships", i+1, s.PlaceIndex[i], len(restored.Fleet))
		}
		if s.Ready[i] && len(restored.Fleet) != engine.FleetSize() {
			return State{}, fmt.Errorf("game: side %d: ready with %d of %d ships", i+1, len(restored.Fleet), engine.FleetSize())
		}
		if s.Orientation[i] == "" {
			s.Orientation[i] = core.Horizontal
		}
		if !s.Orientation[i].Valid() {
			return State{}, fmt.Errorf("game: side %d: invalid orientation %q", i+1, s.Orientation[i])
		}
	}
	if err := checkPhase(s); err != nil {
		return State{}, err
	}
	for k, v := range snap.Names {
		s.Names[k] = v
	}
	if len(s.Log) > MaxLogEntries {
		s.Log = s.Log[len(s.Log)-MaxLogEntries:]
	}
	return s, nil
}

// checkPhase rejects phases the state machine cannot reach with the
// restored readiness and winner.
func checkPhase(s State) error {
	switch s.Phase {
	case PhaseBothPlace:
		if s.BothReady() {
			return fmt.Errorf("game: phase %s with both fleets ready", s.Phase)
		}
		if s.Winner != core.Spectator {
			return fmt.Errorf("game: phase %s with winner %s", s.Phase, s.Winner)
		}
	case PhaseP1Turn, PhaseP2Turn:
		if !s.BothReady() {
			return fmt.Errorf("game: phase %s before both fleets are ready", s.Phase)
		}
		if s.Winner != core.Spectator {
			return fmt.Errorf("game: phase %s with winner %s", s.Phase, s.Winner)
		}
	case PhaseGameOver:
		if !s.BothReady() {
			return fmt.Errorf("game: phase %s before both fleets are ready", s.Phase)
		}
		if !s.Winner.IsPlayer() {
			return fmt.Errorf("game: phase %s without a winner", s.Phase)
		}
	}
	return nil
}

// sideFromSnapshot replays the fleet one ship at a time, so every ship must
// be a straight run in placement order that fits beside the ones before it.
func sideFromSnapshot(side SideSnapshot) (Side, error) {
	shots := engine.NewKeySet()
	for _, k := range side.Shots {
		if _, err := core.ParseKey(k); err != nil {
			return Side{}, err
		}
		shots.Add(k)
	}
	if len(side.Fleet) > engine.FleetSize() {
		return Side{}, fmt.Errorf("%d ships, at most %d allowed", len(side.Fleet), engine.FleetSize())
	}
	fleet := make(engine.Fleet, 0, len(side.Fleet))
	for i, ss := range side.Fleet {
		if want := engine.FleetSizes[i]; ss.Size != want || len(ss.Coords) != want {
			return Side{}, fmt.Errorf("ship %s: size %d with %d cells, expected %d", ss.ID, ss.Size, len(ss.Coords), want)
		}
		o, ok := shipOrientation(ss)
		if !ok {
			return Side{}, fmt.Errorf("ship %s: cells are not a straight run", ss.ID)
		}
		if !engine.CanPlace(fleet, ss.Coords[0], ss.Size, o) {
			return Side{}, fmt.Errorf("ship %s: off the board or overlapping", ss.ID)
		}
		ship := engine.Ship{
			ID:     ss.ID,
			Size:   ss.Size,
			Coords: engine.CoordsFor(ss.Coords[0], ss.Size, o),
			Hits:   engine.NewKeySet(),
		}
		for _, k := range ss.Hits {
			c, err := core.ParseKey(k)
			if err != nil {
				return Side{}, err
			}
			if !ship.Occupies(c) {
				return Side{}, fmt.Errorf("ship %s: hit %s outside the ship", ss.ID, k)
			}
			ship.Hits.Add(k)
		}
		fleet = append(fleet, ship)
	}
	return Side{Fleet: fleet, Shots: shots}, nil
}

// shipOrientation returns the orientation whose run from the first cell
// reproduces the ship's cells exactly.
func shipOrientation(ss ShipSnapshot) (core.Orientation, bool) {
	if len(ss.Coords) == 0 {
		return "", false
	}
	for _, o := range []core.Orientation{core.Horizontal, core.Vertical} {
		if slices.Equal(engine.CoordsFor(ss.Coords[0], ss.Size, o), ss.Coords) {
			return o, true
		}
	}
	return "", false
}

// RedactFor returns a copy of snap as viewer may see it: fleets other than
// the viewer's keep only their sunk ships. Hit cells and afloat counts stay
// visible. Spectators see neither fleet.
func (snap Snapshot) RedactFor(viewer core.PlayerID) Snapshot {
	out := snap
	for i := range out.Sides {
		if core.PlayerID(i+1) == viewer {
			continue
		}
		side := out.Sides[i]
		sunk := make([]ShipSnapshot, 0, len(side.Fleet))
		for _, ship := range side.Fleet {
			if len(ship.Hits) == ship.Size {
				sunk = append(sunk, ship)
			}
		}
		side.Fleet = sunk
		side.Hidden = true
		out.Sides[i] = side
	}
	return out
}

// TrimLog returns a copy of snap keeping only the newest n log entries.
func (snap Snapshot) TrimLog(n int) Snapshot {
	if n < 0 || len(snap.Log) <= n {
		return snap
	}
	out := snap
	out.Log = append([]LogEntry{}, snap.Log[len(snap.Log)-n:]...)
	return out
}

// MarshalState encodes s as snapshot JSON.
func MarshalState(s State) ([]byte, error) {
	return json.Marshal(ToSnapshot(s))
}

// UnmarshalState decodes snapshot JSON produced by MarshalState.
func UnmarshalState(data []byte) (State, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return State{}, fmt.Errorf("game: decode snapshot: %w", err)
	}
	return FromSnapshot(snap)
}
