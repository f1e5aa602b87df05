// Package grid holds the board snapshot the simulation runs on: a wrapping 2D
// grid of cells plus a flat list of typed, coloured markers.
package grid

import (
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidDimensions = errors.New("grid dimensions must be > 0")

type MarkerType string

const (
	MarkerAgent  MarkerType = "agent"
	MarkerKiller MarkerType = "killer"
	MarkerReward MarkerType = "reward"
)

// Default marker colours used by renderers.
const (
	ColorAgent  = "#2f80ed"
	ColorKiller = "#eb5757"
	ColorReward = "#27ae60"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Marker struct {
	Position Point      `json:"position"`
	Type     MarkerType `json:"type"`
	Color    string     `json:"color"`
}

// Step is a relative move on the grid.
type Step struct {
	DX int
	DY int
}

// Board is an immutable snapshot. Markers are replaced wholesale between
// ticks, never patched.
type Board struct {
	gridWidth  int
	gridHeight int
	cellSize   int
	markers    []Marker
	// rows indexes marker columns by type and row.
	rows map[MarkerType][][]int
}

func NewBoard(gridWidth, gridHeight, cellSize int, markers []Marker) (Board, error) {
	if gridWidth <= 0 || gridHeight <= 0 || cellSize <= 0 {
		return Board{}, fmt.Errorf("%w: width=%d height=%d cell=%d", ErrInvalidDimensions, gridWidth, gridHeight, cellSize)
	}
	return newBoard(gridWidth, gridHeight, cellSize, markers), nil
}

func newBoard(gridWidth, gridHeight, cellSize int, markers []Marker) Board {
	b := Board{
		gridWidth:  gridWidth,
		gridHeight: gridHeight,
		cellSize:   cellSize,
		markers:    slices.Clone(markers),
		rows:       make(map[MarkerType][][]int),
	}
	for _, marker := range b.markers {
		row := Mod(marker.Position.Y, gridHeight)
		columns, ok := b.rows[marker.Type]
		if !ok {
			columns = make([][]int, gridHeight)
			b.rows[marker.Type] = columns
		}
		columns[row] = append(columns[row], marker.Position.X)
	}
	return b
}

func (b Board) GridWidth() int  { return b.gridWidth }
func (b Board) GridHeight() int { return b.gridHeight }
func (b Board) CellSize() int   { return b.cellSize }

func (b Board) Markers() []Marker {
	return slices.Clone(b.markers)
}

// WithMarkers returns a board with the same dimensions and a new marker list.
func (b Board) WithMarkers(markers []Marker) Board {
	return newBoard(b.gridWidth, b.gridHeight, b.cellSize, markers)
}

func (b Board) PositionsOf(markerType MarkerType) []Point {
	var out []Point
	for _, marker := range b.markers {
		if marker.Type == markerType {
			out = append(out, marker.Position)
		}
	}
	return out
}

func (b Board) HasMarker(point Point, markerType MarkerType) bool {
	for _, marker := range b.markers {
		if marker.Type == markerType && marker.Position == point {
			return true
		}
	}
	return false
}

// ForwardDistance is the smallest wrapped distance, walking sign columns at a
// time along row, from column x to a marker of markerType. It returns the grid
// width when the row holds no such marker.
func (b Board) ForwardDistance(x, row, sign int, markerType MarkerType) int {
	best := b.gridWidth
	columns := b.rows[markerType]
	if columns == nil {
		return best
	}
	for _, column := range columns[Mod(row, b.gridHeight)] {
		if d := Mod((column-x)*sign, b.gridWidth); d < best {
			best = d
		}
	}
	return best
}

// Wrap folds point back onto the torus.
func (b Board) Wrap(point Point) Point {
	return Point{X: Mod(point.X, b.gridWidth), Y: Mod(point.Y, b.gridHeight)}
}

// Destination applies step to from with wraparound on both axes.
func (b Board) Destination(from Point, step Step) Point {
	return b.Wrap(Point{X: from.X + step.DX, Y: from.Y + step.DY})
}

func (b Board) Contains(point Point) bool {
	return point.X >= 0 && point.X < b.gridWidth && point.Y >= 0 && point.Y < b.gridHeight
}

// Mod is the non-negative remainder of a divided by n.
func Mod(a, n int) int {
	if n <= 0 {
		return 0
	}
	return ((a % n) + n) % n
}

// PointSet indexes positions for collision checks.
type PointSet map[Point]struct{}

func NewPointSet(points ...[]Point) PointSet {
	set := PointSet{}
	for _, group := range points {
		for _, p := range group {
			set[p] = struct{}{}
		}
	}
	return set
}

func (s PointSet) Has(p Point) bool {
	_, ok := s[p]
	return ok
}
