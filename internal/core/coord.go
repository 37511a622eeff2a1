// Package core provides fundamental types shared by the battleships packages.
// It contains no external dependencies to keep game logic pure and testable.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the width and height of a player's board.
const BoardSize = 10

// Coord is a cell on the board, addressed by row and column.
type Coord struct {
	Row int `json:"r"`
	Col int `json:"c"`
}

// At is shorthand for Coord{Row: row, Col: col}.
func At(row, col int) Coord {
	return Coord{Row: row, Col: col}
}

// Key returns the canonical "row,col" key used for set and map membership.
func (c Coord) Key() string {
	return strconv.Itoa(c.Row) + "," + strconv.Itoa(c.Col)
}

// String implements fmt.Stringer.
func (c Coord) String() string {
	return c.Key()
}

// InBounds reports whether the coordinate lies on the board.
func (c Coord) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

// Add returns c shifted by (dr, dc).
func (c Coord) Add(dr, dc int) Coord {
	return Coord{Row: c.Row + dr, Col: c.Col + dc}
}

// ParseKey converts a "row,col" key back into a coordinate.
// Keys that are malformed or off the board are rejected.
func ParseKey(key string) (Coord, error) {
	rowStr, colStr, ok := strings.Cut(key, ",")
	if !ok {
		return Coord{}, fmt.Errorf("core: malformed coordinate key %q", key)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil {
		return Coord{}, fmt.Errorf("core: malformed row in key %q: %w", key, err)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil {
		return Coord{}, fmt.Errorf("core: malformed column in key %q: %w", key, err)
	}
	c := Coord{Row: row, Col: col}
	if !c.InBounds() {
		return Coord{}, fmt.Errorf("core: key %q is off the board", key)
	}
	return c, nil
}

// MustParseKey is ParseKey for keys produced by Coord.Key. It panics on bad input.
func MustParseKey(key string) Coord {
	c, err := ParseKey(key)
	if err != nil {
		panic(err)
	}
	return c
}

// Neighbors returns the in-bounds orthogonal neighbours of c
// in the order up, down, left, right.
func Neighbors(c Coord) []Coord {
	candidates := [4]Coord{
		c.Add(-1, 0),
		c.Add(1, 0),
		c.Add(0, -1),
		c.Add(0, 1),
	}
	out := make([]Coord, 0, len(candidates))
	for _, n := range candidates {
		if n.InBounds() {
			out = append(out, n)
		}
	}
	return out
}

// Orientation selects the axis a ship extends along from its start cell.
type Orientation string

const (
	Horizontal Orientation = "H" // increasing column
	Vertical   Orientation = "V" // increasing row
)

// Valid reports whether o is one of the two known orientations.
func (o Orientation) Valid() bool {
	return o == Horizontal || o == Vertical
}

// Toggle returns the other orientation.
func (o Orientation) Toggle() Orientation {
	if o == Vertical {
		return Horizontal
	}
	return Vertical
}

// Step returns the row/column delta for one cell along o.
func (o Orientation) Step() (dr, dc int) {
	if o == Vertical {
		return 1, 0
	}
	return 0, 1
}
