// Package physics provides proximity checks for agents moving through world
// space.
package physics

import "math"

// Point is a position in world space.
type Point struct {
	X, Y float64
}

// Distance calculates the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Sqrt(DistanceSquared(a, b))
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}

// Within reports whether a and b are closer than radius.
func Within(a, b Point, radius float64) bool {
	return DistanceSquared(a, b) < radius*radius
}

// Lerp interpolates between a and b; t=0 gives a, t=1 gives b.
func Lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}
