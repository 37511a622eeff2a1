package ai

import (
	"math/rand"
	"sort"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/engine"
)

// ChooseTarget returns the next cell to fire at. It does not modify mem;
// a hard AI picks the first queue entry not yet shot and leaves the queue
// to be pruned by Update.
func ChooseTarget(shots engine.KeySet, mem Memory, d Difficulty, rng *rand.Rand) core.Coord {
	switch d {
	case Medium:
		if len(mem.Cluster) > 0 {
			last, err := core.ParseKey(mem.Cluster[len(mem.Cluster)-1])
			if err == nil {
				if opts := unshotNeighbors(shots, last); len(opts) > 0 {
					return core.MustParseKey(opts[rng.Intn(len(opts))])
				}
			}
		}
		return huntOrRandom(shots, mem.Parity, rng)

	case Hard:
		for _, k := range mem.Queue {
			if shots.Has(k) {
				continue
			}
			if c, err := core.ParseKey(k); err == nil {
				return c
			}
		}
		if len(mem.Cluster) > 0 {
			if cand := TargetsFromCluster(shots, mem.Cluster, mem.SizesLeft); len(cand) > 0 {
				return core.MustParseKey(cand[0])
			}
		}
		return huntOrRandom(shots, mem.Parity, rng)
	}
	return randomUnshot(shots, rng)
}

// TargetsFromCluster derives follow-up targets from the hits on one ship.
//
// One hit yields its unshot neighbours. A straight line yields the open
// cell beyond each end, keeping only ends where some remaining size could
// still fit: size >= len(cluster) and size-len(cluster) <= 1+run, where run
// counts the open cells past the candidate. If pruning would leave nothing
// the unpruned ends are returned, and if both ends are blocked the unshot
// neighbours of every cluster cell are returned instead.
func TargetsFromCluster(shots engine.KeySet, cluster []string, sizesLeft []int) []string {
	coords := parseKeys(cluster)
	switch {
	case len(coords) == 0:
		return nil
	case len(coords) == 1:
		return unshotNeighbors(shots, coords[0])
	case !isLine(coords):
		return unshotNeighbors(shots, coords[len(coords)-1])
	}

	sameRow := coords[0].Row == coords[1].Row
	sort.Slice(coords, func(i, j int) bool {
		if sameRow {
			return coords[i].Col < coords[j].Col
		}
		return coords[i].Row < coords[j].Row
	})
	first, last := coords[0], coords[len(coords)-1]

	dr, dc := 1, 0
	if sameRow {
		dr, dc = 0, 1
	}
	type end struct {
		cell   core.Coord
		dr, dc int
	}
	var ends []end
	for _, e := range []end{
		{first.Add(-dr, -dc), -dr, -dc},
		{last.Add(dr, dc), dr, dc},
	} {
		if e.cell.InBounds() && !shots.HasCoord(e.cell) {
			ends = append(ends, e)
		}
	}

	if len(ends) == 0 {
		var out []string
		for _, c := range coords {
			out = appendUnique(out, unshotNeighbors(shots, c)...)
		}
		return out
	}

	all := make([]string, 0, len(ends))
	for _, e := range ends {
		all = append(all, e.cell.Key())
	}
	if !anySizeAtLeast(sizesLeft, len(coords)) {
		return all
	}

	var feasible []string
	for _, e := range ends {
		run := openRun(shots, e.cell, e.dr, e.dc)
		for _, size := range sizesLeft {
			if size >= len(coords) && size-len(coords) <= 1+run {
				feasible = append(feasible, e.cell.Key())
				break
			}
		}
	}
	if len(feasible) == 0 {
		return all
	}
	return feasible
}

// openRun counts unshot in-bounds cells beyond from in direction (dr, dc).
func openRun(shots engine.KeySet, from core.Coord, dr, dc int) int {
	n := 0
	for c := from.Add(dr, dc); c.InBounds() && !shots.HasCoord(c); c = c.Add(dr, dc) {
		n++
	}
	return n
}

func anySizeAtLeast(sizes []int, n int) bool {
	for _, s := range sizes {
		if s >= n {
			return true
		}
	}
	return false
}

func isLine(coords []core.Coord) bool {
	if len(coords) < 2 {
		return false
	}
	sameRow, sameCol := true, true
	for _, c := range coords[1:] {
		sameRow = sameRow && c.Row == coords[0].Row
		sameCol = sameCol && c.Col == coords[0].Col
	}
	return sameRow || sameCol
}

func parseKeys(keys []string) []core.Coord {
	out := make([]core.Coord, 0, len(keys))
	for _, k := range keys {
		if c, err := core.ParseKey(k); err == nil {
			out = append(out, c)
		}
	}
	return out
}

func unshotNeighbors(shots engine.KeySet, c core.Coord) []string {
	var out []string
	for _, n := range core.Neighbors(c) {
		if !shots.HasCoord(n) {
			out = append(out, n.Key())
		}
	}
	return out
}

func huntOrRandom(shots engine.KeySet, parity int, rng *rand.Rand) core.Coord {
	var cand []core.Coord
	for r := 0; r < core.BoardSize; r++ {
		for c := 0; c < core.BoardSize; c++ {
			cell := core.At(r, c)
			if (r+c)%2 == parity && !shots.HasCoord(cell) {
				cand = append(cand, cell)
			}
		}
	}
	if len(cand) == 0 {
		return randomUnshot(shots, rng)
	}
	return cand[rng.Intn(len(cand))]
}

// randomUnshot picks uniformly among unshot cells. A full board yields 0,0.
func randomUnshot(shots engine.KeySet, rng *rand.Rand) core.Coord {
	var cand []core.Coord
	for r := 0; r < core.BoardSize; r++ {
		for c := 0; c < core.BoardSize; c++ {
			if cell := core.At(r, c); !shots.HasCoord(cell) {
				cand = append(cand, cell)
			}
		}
	}
	if len(cand) == 0 {
		return core.At(0, 0)
	}
	return cand[rng.Intn(len(cand))]
}
