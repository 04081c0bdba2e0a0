// Package wave spawns mobile agents along leaf-to-root paths of the tree,
// moves them toward the root and merges them on contact.
package wave

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
)

// Tier is the strength class of an agent.
type Tier int

const (
	Normal Tier = iota
	Elevated
	MaxElevated
)

// Elevate returns the next tier, capped at MaxElevated.
func (t Tier) Elevate() Tier {
	if t >= MaxElevated {
		return MaxElevated
	}
	return t + 1
}

func (t Tier) String() string {
	switch t {
	case Normal:
		return "normal"
	case Elevated:
		return "elevated"
	case MaxElevated:
		return "max"
	default:
		return "unknown"
	}
}

// Agent walks its path from the leaf toward the root. Fields are mutated
// only by the owning Roster.
type Agent struct {
	ID       uuid.UUID
	Strength float64
	Path     graph.Path
	Progress int           // Index into Path of the current cell
	Timer    time.Duration // Time accumulated toward the next step
	Tier     Tier
	Wave     int // Batch number that spawned the agent (or its merge source)

	merged  atomic.Bool
	removed bool
}

// Cell returns the path node the agent currently stands on.
func (a *Agent) Cell() grid.Position {
	return a.Path[a.Progress]
}

// Next returns the node the agent is walking toward. ok is false at the root.
func (a *Agent) Next() (pos grid.Position, ok bool) {
	if a.AtRoot() {
		return grid.Position{}, false
	}
	return a.Path[a.Progress+1], true
}

// AtRoot reports whether the agent reached the end of its path.
func (a *Agent) AtRoot() bool {
	return a.Progress >= len(a.Path)-1
}

// Merged reports whether the agent took part in a merge.
func (a *Agent) Merged() bool {
	return a.merged.Load()
}

// Fraction returns how far the agent is between Cell and Next, in [0, 1).
func (a *Agent) Fraction(stepTime time.Duration) float64 {
	if stepTime <= 0 || a.AtRoot() {
		return 0
	}
	f := float64(a.Timer) / float64(stepTime)
	return min(max(f, 0), 1)
}
