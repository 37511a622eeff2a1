// Package ai implements the computer opponent. Decisions use only the
// AI's own shot history and the feedback it received, never the
// opponent's hidden fleet.
package ai

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// Difficulty selects the targeting policy.
type Difficulty string

const (
	Easy   Difficulty = "easy"   // uniform random
	Medium Difficulty = "medium" // parity hunt, then tries around the last hit
	Hard   Difficulty = "hard"   // parity hunt, queue-driven line extension
)

// ParseDifficulty converts a user-supplied name, ignoring case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("ai: unknown difficulty %q (want easy, medium or hard)", s)
	}
	return d, nil
}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Memory is what the AI remembers between turns. It is a value:
// Update returns a new Memory and never modifies the one passed in.
type Memory struct {
	Queue     []string // pending candidate targets, oldest first
	Cluster   []string // hits on the ship currently being chased
	Parity    int      // hunt on cells where (row+col)%2 == Parity
	SizesLeft []int    // ship sizes not yet seen sunk
}

// NewMemory returns an empty memory with a random hunt parity.
func NewMemory(rng *rand.Rand) Memory {
	return Memory{
		Parity:    rng.Intn(2),
		SizesLeft: append([]int(nil), engine.FleetSizes...),
	}
}

// Clone returns a deep copy of m.
func (m Memory) Clone() Memory {
	return Memory{
		Queue:     append([]string(nil), m.Queue...),
		Cluster:   append([]string(nil), m.Cluster...),
		Parity:    m.Parity,
		SizesLeft: append([]int(nil), m.SizesLeft...),
	}
}

// Update folds the result of one resolved shot into mem.
// It must be called exactly once per shot, with shotsAfter including target.
func Update(mem Memory, d Difficulty, target core.Coord, result engine.ShotResult, shotsAfter engine.KeySet) Memory {
	next := mem.Clone()
	if d == Easy {
		return next
	}
	if result.Win {
		next.Queue = nil
		next.Cluster = nil
		return next
	}
	if !result.Hit {
		next.Queue = dropShot(next.Queue, shotsAfter)
		return next
	}

	next.Cluster = append(next.Cluster, target.Key())
	if result.Sunk != "" {
		next.SizesLeft = removeSize(next.SizesLeft, len(next.Cluster))
		next.Queue = nil
		next.Cluster = nil
		return next
	}

	switch d {
	case Medium:
		next.Queue = appendUnique(next.Queue, unshotNeighbors(shotsAfter, target)...)
	case Hard:
		ext := TargetsFromCluster(shotsAfter, next.Cluster, next.SizesLeft)
		if len(next.Cluster) >= 2 && isLine(parseKeys(next.Cluster)) {
			next.Queue = ext
		} else {
			next.Queue = appendUnique(next.Queue, ext...)
		}
	}
	next.Queue = dropShot(next.Queue, shotsAfter)
	return next
}

// Player bundles a difficulty, its memory and a random source for callers
// that drive the AI turn by turn.
type Player struct {
	Difficulty Difficulty
	Memory     Memory
	rng        *rand.Rand
}

// NewPlayer creates an AI player seeded with seed.
func NewPlayer(d Difficulty, seed int64) *Player {
	rng := rand.New(rand.NewSource(seed))
	return &Player{Difficulty: d, Memory: NewMemory(rng), rng: rng}
}

// Reset forgets everything learned in the previous game.
func (p *Player) Reset() {
	p.Memory = NewMemory(p.rng)
}

// Next picks the next target given the AI's own shots.
func (p *Player) Next(shots engine.KeySet) core.Coord {
	return ChooseTarget(shots, p.Memory, p.Difficulty, p.rng)
}

// Observe records the outcome of a shot.
func (p *Player) Observe(target core.Coord, result engine.ShotResult, shotsAfter engine.KeySet) {
	p.Memory = Update(p.Memory, p.Difficulty, target, result, shotsAfter)
}

// Placements generates placements for a random legal fleet.
func (p *Player) Placements() []Placement {
	return RandomPlacements(p.rng)
}

func removeSize(sizes []int, size int) []int {
	for i, s := range sizes {
		if s == size {
			return append(sizes[:i:i], sizes[i+1:]...)
		}
	}
	return sizes
}

func appendUnique(queue []string, keys ...string) []string {
	seen := engine.NewKeySet(queue...)
	for _, k := range keys {
		if !seen.Has(k) {
			seen.Add(k)
			queue = append(queue, k)
		}
	}
	return queue
}

func dropShot(queue []string, shots engine.KeySet) []string {
	out := queue[:0:0]
	for _, k := range queue {
		if !shots.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
