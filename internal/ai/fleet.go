package ai

import (
	"math/rand"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

const (
	placementAttempts = 1000
	placementRounds   = 100
)

// Placement is one ship placement in fleet order.
type Placement struct {
	Start       core.Coord
	Size        int
	Orientation core.Orientation
}

// RandomPlacements returns a legal placement for every ship size in
// engine.FleetSizes order.
func RandomPlacements(rng *rand.Rand) []Placement {
	for {
		if out := CompletePlacements(rng, nil); out != nil {
			return out
		}
	}
}

// CompletePlacements places the ships still missing from fleet, continuing
// in engine.FleetSizes order around the ships already there. It returns nil
// when the remaining ships do not fit.
func CompletePlacements(rng *rand.Rand, fleet engine.Fleet) []Placement {
	if len(fleet) >= engine.FleetSize() {
		return []Placement{}
	}
	for round := 0; round < placementRounds; round++ {
		if out, ok := tryPlacements(rng, fleet); ok {
			return out
		}
	}
	return nil
}

func tryPlacements(rng *rand.Rand, fleet engine.Fleet) ([]Placement, bool) {
	sizes := engine.FleetSizes[len(fleet):]
	out := make([]Placement, 0, len(sizes))
	for _, size := range sizes {
		placed := false
		for attempt := 0; attempt < placementAttempts && !placed; attempt++ {
			p := Placement{
				Start:       core.At(rng.Intn(core.BoardSize), rng.Intn(core.BoardSize)),
				Size:        size,
				Orientation: core.Horizontal,
			}
			if rng.Intn(2) == 1 {
				p.Orientation = core.Vertical
			}
			if engine.CanPlace(fleet, p.Start, p.Size, p.Orientation) {
				fleet = engine.PlaceShip(fleet, p.Start, p.Size, p.Orientation)
				out = append(out, p)
				placed = true
			}
		}
		if !placed {
			return nil, false
		}
	}
	return out, true
}

// RandomFleet builds a complete random fleet.
func RandomFleet(rng *rand.Rand) engine.Fleet {
	var fleet engine.Fleet
	for _, p := range RandomPlacements(rng) {
		fleet = engine.PlaceShip(fleet, p.Start, p.Size, p.Orientation)
	}
	return fleet
}
