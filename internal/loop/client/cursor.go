package client

import (
	"github.com/samber/lo"

	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/loop/server"
)

// targets returns the cells the cursor may rest on in the current phase:
// the frontier while expanding, active cells otherwise.
func targets(snap *server.WorldSnapshot) []grid.Position {
	if snap.Phase == server.PhaseExpand && len(snap.Frontier) > 0 {
		return snap.Frontier
	}
	return lo.Map(snap.Nodes, func(n server.NodeView, _ int) grid.Position { return n.Pos })
}

// step moves from toward d, landing on the closest candidate that lies in
// that direction. Sideways offset costs twice as much as distance along d.
// from is returned when nothing lies that way.
func step(from grid.Position, d grid.Direction, candidates []grid.Position) grid.Position {
	v := d.Vector()
	ahead := lo.Filter(candidates, func(p grid.Position, _ int) bool {
		delta := p.Sub(from)
		return delta.X*v.X+delta.Y*v.Y > 0
	})
	if len(ahead) == 0 {
		return from
	}
	return lo.MinBy(ahead, func(a, b grid.Position) bool {
		return stepCost(from, a, v) < stepCost(from, b, v)
	})
}

func stepCost(from, to, v grid.Position) int {
	delta := to.Sub(from)
	along := delta.X*v.X + delta.Y*v.Y
	side := delta.X*v.Y - delta.Y*v.X
	if side < 0 {
		side = -side
	}
	return along + 2*side
}

// snap returns from if it is a candidate, otherwise the nearest candidate.
// Ties keep the candidate listed first.
func snap(from grid.Position, candidates []grid.Position) grid.Position {
	if len(candidates) == 0 || lo.Contains(candidates, from) {
		return from
	}
	return lo.MinBy(candidates, func(a, b grid.Position) bool {
		return from.Manhattan(a) < from.Manhattan(b)
	})
}
