// Package grid provides integer positions and compass directions on a
// 4-connected grid.
package grid

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Position is an integer grid coordinate. It is comparable and used as the
// key for all per-cell data.
type Position struct {
	X, Y int
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns p + q.
func (p Position) Add(q Position) Position {
	return Position{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Step returns the neighboring position in direction d.
func (p Position) Step(d Direction) Position {
	return p.Add(d.Vector())
}

// Neighbors returns the four neighbors of p in direction priority order.
func (p Position) Neighbors() [NumDirections]Position {
	var out [NumDirections]Position
	for i, d := range Directions {
		out[i] = p.Step(d)
	}
	return out
}

// Manhattan returns the taxicab distance between p and q.
func (p Position) Manhattan(q Position) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

// Adjacent reports whether p and q are 4-neighbors.
func (p Position) Adjacent(q Position) bool {
	return p.Manhattan(q) == 1
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Direction is one of the four compass directions. The numeric order is the
// fixed priority order used for every deterministic tie-break.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// NumDirections is the number of compass directions.
const NumDirections = 4

// Directions lists every direction in priority order.
var Directions = [NumDirections]Direction{North, East, South, West}

var vectors = [NumDirections]Position{
	North: {X: 0, Y: 1},
	East:  {X: 1, Y: 0},
	South: {X: 0, Y: -1},
	West:  {X: -1, Y: 0},
}

// Vector returns the unit offset for d. North is +Y.
func (d Direction) Vector() Position {
	return vectors[d]
}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	return (d + 2) % NumDirections
}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// DirectionOf maps a unit compass vector to its direction. Any other vector
// cannot come out of a correctly maintained grid and panics.
func DirectionOf(delta Position) Direction {
	switch delta {
	case vectors[North]:
		return North
	case vectors[East]:
		return East
	case vectors[South]:
		return South
	case vectors[West]:
		return West
	}
	panic(errors.AssertionFailedf("grid: %s is not a unit compass vector", delta))
}

// Between returns the direction from one position to an adjacent one.
func Between(from, to Position) Direction {
	return DirectionOf(to.Sub(from))
}

// Rect is an inclusive rectangle of positions.
type Rect struct {
	Min, Max Position
}

// RectAround returns the rectangle reaching rx columns and ry rows from center.
func RectAround(center Position, rx, ry int) Rect {
	return Rect{
		Min: Position{X: center.X - rx, Y: center.Y - ry},
		Max: Position{X: center.X + rx, Y: center.Y + ry},
	}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Width returns the number of columns in r.
func (r Rect) Width() int {
	return r.Max.X - r.Min.X + 1
}

// Height returns the number of rows in r.
func (r Rect) Height() int {
	return r.Max.Y - r.Min.Y + 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
