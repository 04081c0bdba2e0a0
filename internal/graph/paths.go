package graph

import (
	"iter"

	"github.com/zyedidia/generic/mapset"

	"github.com/tomz197/outgrowth/internal/grid"
)

// Path runs from a leaf (first element) to the root (last element).
type Path []grid.Position

// Leaf returns the starting position.
func (p Path) Leaf() grid.Position {
	return p[0]
}

// Root returns the final position.
func (p Path) Root() grid.Position {
	return p[len(p)-1]
}

// Leaves returns every active node without active children, in activation
// order.
func (e *Engine) Leaves() []grid.Position {
	parents := mapset.New[grid.Position]()
	for _, pos := range e.store.order {
		if n := e.store.nodes[pos]; n.HasParent {
			parents.Put(n.Parent)
		}
	}
	var leaves []grid.Position
	for _, pos := range e.store.order {
		if !parents.Has(pos) {
			leaves = append(leaves, pos)
		}
	}
	return leaves
}

// LeafPaths returns one leaf-to-root path per leaf. The sequence is computed
// when iterated, against the tree as it is at that moment; it does not
// mutate anything.
func (e *Engine) LeafPaths() (iter.Seq[Path], error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	return func(yield func(Path) bool) {
		for _, leaf := range e.Leaves() {
			if !yield(e.pathFrom(leaf)) {
				return
			}
		}
	}, nil
}

func (e *Engine) pathFrom(leaf grid.Position) Path {
	n := e.store.nodes[leaf]
	path := make(Path, 0, n.Depth+1)
	for {
		path = append(path, n.Pos)
		if !n.HasParent {
			return path
		}
		n = e.store.nodes[n.Parent]
	}
}
