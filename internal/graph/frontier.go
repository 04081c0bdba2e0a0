package graph

import (
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/zyedidia/generic/mapset"

	"github.com/tomz197/outgrowth/internal/grid"
)

// FrontierEntry is an eligible position and the active node it attaches to.
type FrontierEntry struct {
	Pos    grid.Position
	Parent grid.Position
}

// FrontierSet tracks positions eligible for activation in the order they
// became eligible. Positions that leave without activating are blocked and
// never re-enter.
type FrontierSet struct {
	entries *linkedhashmap.Map // grid.Position -> parent grid.Position
	blocked mapset.Set[grid.Position]
}

func newFrontierSet() *FrontierSet {
	return &FrontierSet{
		entries: linkedhashmap.New(),
		blocked: mapset.New[grid.Position](),
	}
}

// Contains reports whether pos is currently eligible.
func (f *FrontierSet) Contains(pos grid.Position) bool {
	_, ok := f.entries.Get(pos)
	return ok
}

// Parent returns the recorded parent of an eligible position.
func (f *FrontierSet) Parent(pos grid.Position) (grid.Position, bool) {
	v, ok := f.entries.Get(pos)
	if !ok {
		return grid.Position{}, false
	}
	return v.(grid.Position), true
}

// Blocked reports whether pos was invalidated and can never become eligible.
func (f *FrontierSet) Blocked(pos grid.Position) bool {
	return f.blocked.Has(pos)
}

// Len returns the number of eligible positions.
func (f *FrontierSet) Len() int {
	return f.entries.Size()
}

// Positions returns eligible positions in insertion order.
func (f *FrontierSet) Positions() []grid.Position {
	out := make([]grid.Position, 0, f.entries.Size())
	it := f.entries.Iterator()
	for it.Next() {
		out = append(out, it.Key().(grid.Position))
	}
	return out
}

// Entries returns eligible positions with their parents in insertion order.
func (f *FrontierSet) Entries() []FrontierEntry {
	out := make([]FrontierEntry, 0, f.entries.Size())
	it := f.entries.Iterator()
	for it.Next() {
		out = append(out, FrontierEntry{
			Pos:    it.Key().(grid.Position),
			Parent: it.Value().(grid.Position),
		})
	}
	return out
}

func (f *FrontierSet) add(pos, parent grid.Position) {
	f.entries.Put(pos, parent)
}

func (f *FrontierSet) remove(pos grid.Position) {
	f.entries.Remove(pos)
}

func (f *FrontierSet) block(pos grid.Position) {
	f.entries.Remove(pos)
	f.blocked.Put(pos)
}

func (f *FrontierSet) reset() {
	f.entries.Clear()
	f.blocked = mapset.New[grid.Position]()
}
