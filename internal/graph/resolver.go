package graph

import (
	"github.com/tomz197/outgrowth/internal/grid"
)

// EdgeChange records one edge transition on an active node.
type EdgeChange struct {
	Pos      grid.Position
	Dir      grid.Direction
	From, To EdgeState
}

// Resolver derives edge states from growth deltas.
//
// Activating a node opens the edge to every active neighbor on both sides.
// The parent side of each frontier entry is promoted to Entrance; entries that
// leave the frontier without activating demote it back to Boundary. Passage
// edges never change again.
type Resolver struct{}

// apply resolves the edges touched by d. invalidated lists frontier entries
// removed without activation.
func (r Resolver) apply(s *Store, d *Delta, invalidated []FrontierEntry) {
	for _, pos := range d.Activated {
		r.open(s, pos, d)
	}
	for _, e := range invalidated {
		r.demote(s, e, d)
	}
	for _, e := range d.AddedFrontier {
		r.promote(s, e, d)
	}
}

// FullScan promotes the parent edge of every current frontier entry and
// returns the transitions it made. After a delta has been applied it finds
// nothing left to do.
func (r Resolver) FullScan(s *Store, f *FrontierSet) []EdgeChange {
	var d Delta
	for _, e := range f.Entries() {
		r.promote(s, e, &d)
	}
	return d.Edges
}

func (r Resolver) open(s *Store, pos grid.Position, d *Delta) {
	for _, dir := range grid.Directions {
		n := pos.Step(dir)
		if s.State(n) != Active {
			continue
		}
		if c, ok := s.setEdge(pos, dir, Passage); ok {
			d.Edges = append(d.Edges, c)
		}
		if c, ok := s.setEdge(n, dir.Opposite(), Passage); ok {
			d.Edges = append(d.Edges, c)
		}
	}
}

func (r Resolver) promote(s *Store, e FrontierEntry, d *Delta) {
	if s.State(e.Parent) != Active {
		return
	}
	dir := grid.Between(e.Parent, e.Pos)
	edge, _ := s.Edge(e.Parent, dir)
	if edge != Boundary {
		return
	}
	if c, ok := s.setEdge(e.Parent, dir, Entrance); ok {
		d.Edges = append(d.Edges, c)
	}
}

func (r Resolver) demote(s *Store, e FrontierEntry, d *Delta) {
	if s.State(e.Parent) != Active {
		return
	}
	dir := grid.Between(e.Parent, e.Pos)
	edge, _ := s.Edge(e.Parent, dir)
	if edge != Entrance {
		return
	}
	if c, ok := s.setEdge(e.Parent, dir, Boundary); ok {
		d.Edges = append(d.Edges, c)
	}
}
