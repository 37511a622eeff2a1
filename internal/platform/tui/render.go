package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/tui-battleships/internal/core"
	"github.com/vovakirdan/tui-battleships/internal/game"
)

// Cell is what a viewer knows about one board cell.
type Cell int

const (
	CellWater Cell = iota
	CellShip
	CellMiss
	CellHit
	CellSunk
)

var cellGlyphs = map[Cell]string{
	CellWater: "·",
	CellShip:  "■",
	CellMiss:  "o",
	CellHit:   "X",
	CellSunk:  "#",
}

// Grid is one board as a viewer sees it, indexed [row][col].
type Grid [core.BoardSize][core.BoardSize]Cell

// BoardGrid builds owner's board from snap. The snapshot is already
// redacted for whoever is looking, so ships it does not carry read as water.
func BoardGrid(snap game.Snapshot, owner core.PlayerID) Grid {
	var g Grid
	if !owner.IsPlayer() {
		return g
	}
	side := snap.Sides[owner.Index()]

	for _, ship := range side.Fleet {
		cell := CellShip
		if len(ship.Hits) == ship.Size {
			cell = CellSunk
		}
		for _, c := range ship.Coords {
			if c.InBounds() {
				g[c.Row][c.Col] = cell
			}
		}
	}
	for _, c := range parseKeys(snap.Sides[owner.Other().Index()].Shots) {
		if g[c.Row][c.Col] == CellWater {
			g[c.Row][c.Col] = CellMiss
		}
	}
	for _, c := range parseKeys(side.Hits) {
		if g[c.Row][c.Col] != CellSunk {
			g[c.Row][c.Col] = CellHit
		}
	}
	return g
}

func parseKeys(keys []string) []core.Coord {
	out := make([]core.Coord, 0, len(keys))
	for _, k := range keys {
		c, err := core.ParseKey(k)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

// highlight marks cells drawn over the grid.
type highlight struct {
	cursor  *core.Coord
	preview []core.Coord
	blocked bool // preview would be rejected
}

// styleAt returns the overlay style for c, if any.
func (h highlight) styleAt(theme Theme, c core.Coord) (lipgloss.Style, bool) {
	for _, p := range h.preview {
		if p == c {
			if h.blocked {
				return theme.Blocked, true
			}
			return theme.Preview, true
		}
	}
	if h.cursor != nil && *h.cursor == c {
		return theme.Cursor, true
	}
	return lipgloss.Style{}, false
}

// RenderGrid draws g with row letters and column digits.
func RenderGrid(theme Theme, g Grid, h highlight) string {
	var b strings.Builder

	b.WriteString("  ")
	for col := 0; col < core.BoardSize; col++ {
		b.WriteString(theme.Axis.Render(fmt.Sprintf(" %d", col)))
	}

	for row := 0; row < core.BoardSize; row++ {
		b.WriteString("\n")
		b.WriteString(theme.Axis.Render(fmt.Sprintf("%c ", RowLabel(row))))
		for col := 0; col < core.BoardSize; col++ {
			cell := g[row][col]
			style, marked := h.styleAt(theme, core.At(row, col))
			if !marked {
				style = cellStyle(theme, cell)
			}
			b.WriteString(style.Render(" " + cellGlyphs[cell]))
		}
	}
	return b.String()
}

func cellStyle(theme Theme, cell Cell) lipgloss.Style {
	switch cell {
	case CellShip:
		return theme.Ship
	case CellMiss:
		return theme.Miss
	case CellHit:
		return theme.Hit
	case CellSunk:
		return theme.Sunk
	}
	return theme.Water
}

// RowLabel returns the letter naming a board row.
func RowLabel(row int) rune {
	return rune('A' + row)
}

// CoordLabel formats c the way the board labels it, e.g. "B7".
func CoordLabel(c core.Coord) string {
	return fmt.Sprintf("%c%d", RowLabel(c.Row), c.Col)
}

// NameOf returns the display name of p in snap.
func NameOf(snap game.Snapshot, p core.PlayerID) string {
	if n := snap.Names[p]; n != "" {
		return n
	}
	return p.String()
}

// DescribeLog turns a log entry into one line of match commentary.
func DescribeLog(snap game.Snapshot, e game.LogEntry) string {
	switch e.Type {
	case game.LogFire:
		if e.Target == nil {
			break
		}
		line := fmt.Sprintf("%s fires at %s: ", NameOf(snap, e.Player), CoordLabel(*e.Target))
		switch {
		case !e.Hit:
			line += "miss"
		case e.Sunk != "":
			line += "hit, " + sunkName(snap, e.Player.Other(), e.Sunk) + " sunk"
		default:
			line += "hit"
		}
		if e.Win {
			line += ". " + NameOf(snap, e.Player) + " wins!"
		}
		return line
	}
	return e.Message
}

func sunkName(snap game.Snapshot, owner core.PlayerID, id string) string {
	if owner.IsPlayer() {
		for _, ship := range snap.Sides[owner.Index()].Fleet {
			if ship.ID == id {
				return fmt.Sprintf("%d-cell ship", ship.Size)
			}
		}
	}
	return "ship " + id
}
