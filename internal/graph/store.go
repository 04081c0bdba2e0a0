// Package graph grows a tree-shaped graph on a 4-connected grid and tracks
// the frontier, edge states and leaf-to-root paths derived from it.
package graph

import (
	"github.com/cockroachdb/errors"

	"github.com/tomz197/outgrowth/internal/grid"
)

// Sentinel errors returned by the store and the engine.
var (
	ErrNotInitialized     = errors.New("graph: engine not initialized")
	ErrAlreadyInitialized = errors.New("graph: engine already initialized")
	ErrNotFrontier        = errors.New("graph: position is not in the frontier")
	ErrInactive           = errors.New("graph: position has no node data")
)

// NodeState is the lifecycle state of a grid cell.
type NodeState int

const (
	Inactive NodeState = iota
	Frontier
	Active
)

func (s NodeState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Frontier:
		return "frontier"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// EdgeState is the state of one compass edge of an active node.
type EdgeState int

const (
	Boundary EdgeState = iota // Closed
	Entrance                  // Closed, but the cell across it can be activated
	Passage                   // Open connection to an active neighbor
)

func (s EdgeState) String() string {
	switch s {
	case Boundary:
		return "boundary"
	case Entrance:
		return "entrance"
	case Passage:
		return "passage"
	default:
		return "unknown"
	}
}

// Node is a copy of one cell's record.
type Node struct {
	Pos       grid.Position
	State     NodeState
	Parent    grid.Position // Valid only when HasParent is set
	HasParent bool
	Depth     int // Parent-link distance to the root
	Edges     [grid.NumDirections]EdgeState
}

// Store owns every node record, keyed by position. Positions without a
// record are Inactive. Only the engine and the resolver mutate it.
type Store struct {
	nodes   map[grid.Position]*Node
	order   []grid.Position // Active positions in activation order
	root    grid.Position
	hasRoot bool
}

func newStore() *Store {
	return &Store{nodes: make(map[grid.Position]*Node)}
}

// State returns the state of pos; unknown positions are Inactive.
func (s *Store) State(pos grid.Position) NodeState {
	if n, ok := s.nodes[pos]; ok {
		return n.State
	}
	return Inactive
}

// Node returns a copy of the record at pos.
func (s *Store) Node(pos grid.Position) (Node, bool) {
	n, ok := s.nodes[pos]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Parent returns the parent of pos. The root reports ok=false. Asking for the
// parent of an Inactive position is a caller error.
func (s *Store) Parent(pos grid.Position) (parent grid.Position, ok bool, err error) {
	n, found := s.nodes[pos]
	if !found {
		return grid.Position{}, false, errors.Wrapf(ErrInactive, "parent of %s", pos)
	}
	return n.Parent, n.HasParent, nil
}

// Edge returns the state of pos's edge in direction d. Edges exist only on
// Active nodes.
func (s *Store) Edge(pos grid.Position, d grid.Direction) (EdgeState, error) {
	n, found := s.nodes[pos]
	if !found || n.State != Active {
		return Boundary, errors.Wrapf(ErrInactive, "edge %s of %s", d, pos)
	}
	return n.Edges[d], nil
}

// Root returns the root position. ok is false before initialization.
func (s *Store) Root() (grid.Position, bool) {
	return s.root, s.hasRoot
}

// Len returns the number of node records (Active and Frontier).
func (s *Store) Len() int {
	return len(s.nodes)
}

// ActiveCount returns the number of Active nodes.
func (s *Store) ActiveCount() int {
	return len(s.order)
}

// ParentLinks returns the number of Active nodes with a parent.
func (s *Store) ParentLinks() int {
	links := 0
	for _, pos := range s.order {
		if s.nodes[pos].HasParent {
			links++
		}
	}
	return links
}

// ActivePositions returns Active positions in activation order.
func (s *Store) ActivePositions() []grid.Position {
	out := make([]grid.Position, len(s.order))
	copy(out, s.order)
	return out
}

// Children returns the Active children of pos in direction order.
func (s *Store) Children(pos grid.Position) []grid.Position {
	var out []grid.Position
	for _, n := range pos.Neighbors() {
		if s.isChild(n, pos) {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) isChild(child, parent grid.Position) bool {
	c, ok := s.nodes[child]
	return ok && c.State == Active && c.HasParent && c.Parent == parent
}

// Subtree returns pos and every Active node whose parent chain includes pos,
// breadth first. Inactive or Frontier positions have no subtree.
func (s *Store) Subtree(pos grid.Position) []grid.Position {
	if s.State(pos) != Active {
		return nil
	}
	out := []grid.Position{pos}
	for i := 0; i < len(out); i++ {
		out = append(out, s.Children(out[i])...)
	}
	return out
}

// Check verifies the tree invariants and returns the first violation found.
func (s *Store) Check() error {
	if len(s.order) == 0 {
		return nil
	}
	roots := 0
	for _, pos := range s.order {
		n := s.nodes[pos]
		if !n.HasParent {
			roots++
			if pos != s.root {
				return errors.Newf("node %s has no parent but is not the root", pos)
			}
			continue
		}
		p, ok := s.nodes[n.Parent]
		if !ok || p.State != Active {
			return errors.Newf("parent %s of %s is not active", n.Parent, pos)
		}
		if !pos.Adjacent(n.Parent) {
			return errors.Newf("parent %s of %s is not adjacent", n.Parent, pos)
		}
		if n.Depth != p.Depth+1 {
			return errors.Newf("depth of %s is %d, parent depth %d", pos, n.Depth, p.Depth)
		}
	}
	if roots != 1 {
		return errors.Newf("found %d roots", roots)
	}
	if links := s.ParentLinks(); len(s.order) != links+1 {
		return errors.Newf("%d active nodes but %d parent links", len(s.order), links)
	}
	for _, pos := range s.order {
		if err := s.checkChain(pos); err != nil {
			return err
		}
		if err := s.checkEdges(pos); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) checkChain(pos grid.Position) error {
	seen := make(map[grid.Position]struct{})
	cur := pos
	for {
		if _, dup := seen[cur]; dup {
			return errors.Newf("parent chain of %s revisits %s", pos, cur)
		}
		seen[cur] = struct{}{}
		n := s.nodes[cur]
		if !n.HasParent {
			return nil
		}
		cur = n.Parent
	}
}

func (s *Store) checkEdges(pos grid.Position) error {
	n := s.nodes[pos]
	for _, d := range grid.Directions {
		across := s.State(pos.Step(d))
		if across == Active && n.Edges[d] != Passage {
			return errors.Newf("edge %s of %s is %s between active nodes", d, pos, n.Edges[d])
		}
		if across != Active && n.Edges[d] == Passage {
			return errors.Newf("edge %s of %s is a passage to a %s cell", d, pos, across)
		}
	}
	return nil
}

func (s *Store) putRoot(pos grid.Position) {
	s.nodes[pos] = &Node{Pos: pos, State: Active}
	s.order = append(s.order, pos)
	s.root = pos
	s.hasRoot = true
}

func (s *Store) putFrontier(pos, parent grid.Position, depth int) {
	s.nodes[pos] = &Node{Pos: pos, State: Frontier, Parent: parent, HasParent: true, Depth: depth}
}

func (s *Store) activate(pos grid.Position) {
	s.nodes[pos].State = Active
	s.order = append(s.order, pos)
}

func (s *Store) drop(pos grid.Position) {
	delete(s.nodes, pos)
}

// setEdge updates an Active node's edge and reports the transition, if any.
func (s *Store) setEdge(pos grid.Position, d grid.Direction, to EdgeState) (EdgeChange, bool) {
	n := s.nodes[pos]
	from := n.Edges[d]
	if from == to {
		return EdgeChange{}, false
	}
	n.Edges[d] = to
	return EdgeChange{Pos: pos, Dir: d, From: from, To: to}, true
}

func (s *Store) reset() {
	clear(s.nodes)
	s.order = nil
	s.root = grid.Position{}
	s.hasRoot = false
}
