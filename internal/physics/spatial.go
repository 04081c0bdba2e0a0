package physics

import (
	"math"
	"slices"
)

// SpatialHash buckets items by world position for broad-phase contact
// checks in an unbounded world. Items are inserted by index, then nearby
// items are found through a 3x3 bucket neighborhood lookup.
//
// Cell size must be >= the maximum interaction distance so that every
// contact is found within the neighborhood.
type SpatialHash struct {
	cellSize    float64
	invCellSize float64
	cells       map[cellKey][]int
	points      []Point
}

type cellKey struct {
	col, row int
}

// NewSpatialHash creates an empty hash. cellSize should be >= the contact
// distance of the items being inserted.
func NewSpatialHash(cellSize float64) *SpatialHash {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &SpatialHash{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[cellKey][]int),
	}
}

// Clear removes all items but keeps bucket memory for reuse.
func (h *SpatialHash) Clear() {
	for k, items := range h.cells {
		h.cells[k] = items[:0]
	}
	h.points = h.points[:0]
}

// Insert adds p and returns its index.
func (h *SpatialHash) Insert(p Point) int {
	idx := len(h.points)
	h.points = append(h.points, p)
	k := h.key(p)
	h.cells[k] = append(h.cells[k], idx)
	return idx
}

// Len returns the number of inserted items.
func (h *SpatialHash) Len() int {
	return len(h.points)
}

// QueryAround calls fn for each item index in the 3x3 bucket neighborhood
// around p. If fn returns true, iteration stops early.
func (h *SpatialHash) QueryAround(p Point, fn func(index int) bool) {
	c := h.key(p)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			for _, idx := range h.cells[cellKey{c.col + dc, c.row + dr}] {
				if fn(idx) {
					return
				}
			}
		}
	}
}

// Contacts calls fn once for every unordered pair of items closer than
// radius, with i < j. Pairs are visited in increasing i, then increasing j.
func (h *SpatialHash) Contacts(radius float64, fn func(i, j int)) {
	var near []int
	for i, p := range h.points {
		near = near[:0]
		h.QueryAround(p, func(j int) bool {
			if j > i && Within(p, h.points[j], radius) {
				near = append(near, j)
			}
			return false
		})
		slices.Sort(near)
		for _, j := range near {
			fn(i, j)
		}
	}
}

func (h *SpatialHash) key(p Point) cellKey {
	return cellKey{
		col: int(math.Floor(p.X * h.invCellSize)),
		row: int(math.Floor(p.Y * h.invCellSize)),
	}
}
