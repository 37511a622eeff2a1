// Package engine implements the battleships rules as pure functions over
// fleets and shot sets. Nothing here performs I/O or mutates its inputs:
// every operation returns new values, so callers may keep old states around.
package engine

import (
	"strconv"

	"github.com/vovakirdan/tui-battleships/internal/core"
)

// FleetSizes is the fixed placement sequence every player follows.
var FleetSizes = []int{5, 4, 3, 3, 2, 2}

// FleetSize is the number of ships in a complete fleet.
func FleetSize() int {
	return len(FleetSizes)
}

// NextSize returns the ship size expected at placement index i,
// or false once the fleet is complete.
func NextSize(i int) (int, bool) {
	if i < 0 || i >= len(FleetSizes) {
		return 0, false
	}
	return FleetSizes[i], true
}

// ValidSize reports whether size is one of the ship sizes used in a fleet.
func ValidSize(size int) bool {
	return size >= 2 && size <= 5
}

// Ship is one vessel in a fleet.
type Ship struct {
	ID     string
	Size   int
	Coords []core.Coord
	Hits   KeySet
}

// IsSunk reports whether every cell of the ship has been hit.
func (s Ship) IsSunk() bool {
	if len(s.Coords) == 0 {
		return false
	}
	for _, c := range s.Coords {
		if !s.Hits.HasCoord(c) {
			return false
		}
	}
	return true
}

// Occupies reports whether the ship covers c.
func (s Ship) Occupies(c core.Coord) bool {
	for _, sc := range s.Coords {
		if sc == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the ship.
func (s Ship) Clone() Ship {
	coords := make([]core.Coord, len(s.Coords))
	copy(coords, s.Coords)
	return Ship{
		ID:     s.ID,
		Size:   s.Size,
		Coords: coords,
		Hits:   s.Hits.Clone(),
	}
}

// Fleet is the ordered list of one player's ships.
type Fleet []Ship

// ShipAt returns the index of the ship covering c, or -1.
func (f Fleet) ShipAt(c core.Coord) int {
	for i, s := range f {
		if s.Occupies(c) {
			return i
		}
	}
	return -1
}

// AllSunk reports whether the fleet has ships and all of them are sunk.
// An empty fleet never counts as defeated.
func (f Fleet) AllSunk() bool {
	if len(f) == 0 {
		return false
	}
	for _, s := range f {
		if !s.IsSunk() {
			return false
		}
	}
	return true
}

// SunkCount returns how many ships are sunk.
func (f Fleet) SunkCount() int {
	n := 0
	for _, s := range f {
		if s.IsSunk() {
			n++
		}
	}
	return n
}

// Cells returns the set of every cell the fleet occupies.
func (f Fleet) Cells() KeySet {
	cells := make(KeySet)
	for _, s := range f {
		for _, c := range s.Coords {
			cells.Add(c.Key())
		}
	}
	return cells
}

// Clone returns a deep copy of the fleet. A nil fleet clones to an empty one.
func (f Fleet) Clone() Fleet {
	out := make(Fleet, len(f))
	for i, s := range f {
		out[i] = s.Clone()
	}
	return out
}

// CoordsFor lists the cells a ship of the given size would cover
// when started at start with the given orientation.
func CoordsFor(start core.Coord, size int, o core.Orientation) []core.Coord {
	dr, dc := o.Step()
	coords := make([]core.Coord, 0, size)
	for i := 0; i < size; i++ {
		coords = append(coords, start.Add(dr*i, dc*i))
	}
	return coords
}

// CanPlace reports whether a ship fits entirely on the board without
// overlapping any ship already in fleet.
func CanPlace(fleet Fleet, start core.Coord, size int, o core.Orientation) bool {
	if size <= 0 || !o.Valid() {
		return false
	}
	occupied := fleet.Cells()
	for _, c := range CoordsFor(start, size, o) {
		if !c.InBounds() || occupied.HasCoord(c) {
			return false
		}
	}
	return true
}

// PlaceShip appends a new ship to a copy of fleet.
// An illegal placement returns fleet unchanged; callers are expected to
// validate with CanPlace first and treat this as a safety net only.
func PlaceShip(fleet Fleet, start core.Coord, size int, o core.Orientation) Fleet {
	if !CanPlace(fleet, start, size, o) {
		return fleet
	}
	next := fleet.Clone()
	next = append(next, Ship{
		ID:     "S" + strconv.Itoa(len(fleet)+1),
		Size:   size,
		Coords: CoordsFor(start, size, o),
		Hits:   make(KeySet),
	})
	return next
}

// ShotResult describes the outcome of a single shot.
type ShotResult struct {
	Hit  bool
	Sunk string // id of the ship sunk by this shot, empty otherwise
	Win  bool
}

// Fire resolves a shot at target from the attacker's perspective.
//
// A repeat shot is a no-op: copies of the inputs come back unchanged with Hit
// reflecting the board and no sink or win reported. Validation upstream is
// expected to reject repeats before they get here.
func Fire(attackerShots KeySet, defender Fleet, target core.Coord) (KeySet, Fleet, ShotResult) {
	key := target.Key()
	if attackerShots.Has(key) {
		return attackerShots.Clone(), defender.Clone(), ShotResult{Hit: defender.ShipAt(target) >= 0}
	}

	shots := attackerShots.Clone()
	shots.Add(key)
	fleet := defender.Clone()

	var result ShotResult
	if i := fleet.ShipAt(target); i >= 0 {
		result.Hit = true
		fleet[i].Hits.Add(key)
		if fleet[i].IsSunk() {
			result.Sunk = fleet[i].ID
		}
	}
	result.Win = fleet.AllSunk()
	return shots, fleet, result
}
