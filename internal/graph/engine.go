package graph

import (
	"github.com/cockroachdb/errors"

	"github.com/tomz197/outgrowth/internal/event"
	"github.com/tomz197/outgrowth/internal/grid"
)

// Delta describes everything one mutation changed. It is not retained by the
// engine; consumers apply it before the next mutation.
type Delta struct {
	AddedFrontier   []FrontierEntry // Newly eligible positions and their parents
	RemovedFrontier []grid.Position // Positions no longer eligible
	Activated       []grid.Position // Frontier -> Active this step
	Deactivated     []grid.Position // Active nodes removed by Reset
	Edges           []EdgeChange    // Edge transitions made while resolving
}

// Empty reports whether d carries no change.
func (d Delta) Empty() bool {
	return len(d.AddedFrontier) == 0 && len(d.RemovedFrontier) == 0 &&
		len(d.Activated) == 0 && len(d.Deactivated) == 0 && len(d.Edges) == 0
}

// Option configures an Engine.
type Option func(*Engine)

// WithOrigin places the root at pos instead of (0,0).
func WithOrigin(pos grid.Position) Option {
	return func(e *Engine) {
		e.origin = pos
	}
}

// WithBounds keeps growth inside r. The origin must lie inside r.
func WithBounds(r grid.Rect) Option {
	return func(e *Engine) {
		e.bounds = &r
	}
}

// WithCorridors keeps branches from touching: a frontier position that gains
// a second active neighbor is invalidated and blocked.
func WithCorridors() Option {
	return func(e *Engine) {
		e.corridors = true
	}
}

// WithMaxDepth stops positions deeper than n (root is depth 0) from becoming
// eligible. n <= 0 means unlimited.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// Engine is the only mutator of the tree. It is driven from a single game
// loop and is not safe for concurrent use.
type Engine struct {
	store       *Store
	frontier    *FrontierSet
	resolver    Resolver
	origin      grid.Position
	bounds      *grid.Rect
	corridors   bool
	maxDepth    int
	initialized bool
	changes     event.Stream[Delta]
}

// NewEngine creates an uninitialized engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		store:    newStore(),
		frontier: newFrontierSet(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize creates the root at the origin and makes its neighbors eligible.
func (e *Engine) Initialize() (Delta, error) {
	if e.initialized {
		return Delta{}, ErrAlreadyInitialized
	}
	if e.bounds != nil && !e.bounds.Contains(e.origin) {
		return Delta{}, errors.Newf("graph: origin %s outside bounds", e.origin)
	}

	e.store.putRoot(e.origin)
	d := Delta{Activated: []grid.Position{e.origin}}
	e.expandAround(e.origin, &d)
	e.resolver.apply(e.store, &d, nil)
	e.initialized = true

	e.changes.Publish(d)
	return d, nil
}

// Activate turns a frontier position into an active node attached to its
// recorded parent. It fails without touching any state when pos is not in
// the frontier.
func (e *Engine) Activate(pos grid.Position) (Delta, error) {
	if !e.initialized {
		return Delta{}, ErrNotInitialized
	}
	if !e.frontier.Contains(pos) {
		return Delta{}, errors.Wrapf(ErrNotFrontier, "activate %s (%s)", pos, e.store.State(pos))
	}

	e.frontier.remove(pos)
	e.store.activate(pos)
	d := Delta{
		Activated:       []grid.Position{pos},
		RemovedFrontier: []grid.Position{pos},
	}

	var invalidated []FrontierEntry
	if e.corridors {
		invalidated = e.pruneAround(pos, &d)
	}
	e.expandAround(pos, &d)
	e.resolver.apply(e.store, &d, invalidated)

	e.changes.Publish(d)
	return d, nil
}

// Reset tears down the whole tree. The engine must be initialized again
// before further use.
func (e *Engine) Reset() Delta {
	d := Delta{
		RemovedFrontier: e.frontier.Positions(),
		Deactivated:     e.store.ActivePositions(),
	}
	e.store.reset()
	e.frontier.reset()
	e.initialized = false

	if !d.Empty() {
		e.changes.Publish(d)
	}
	return d
}

// pruneAround invalidates frontier positions next to pos that are attached
// to a different parent.
func (e *Engine) pruneAround(pos grid.Position, d *Delta) []FrontierEntry {
	var invalidated []FrontierEntry
	for _, n := range pos.Neighbors() {
		parent, ok := e.frontier.Parent(n)
		if !ok || parent == pos {
			continue
		}
		e.frontier.block(n)
		e.store.drop(n)
		d.RemovedFrontier = append(d.RemovedFrontier, n)
		invalidated = append(invalidated, FrontierEntry{Pos: n, Parent: parent})
	}
	return invalidated
}

// expandAround makes the eligible Inactive neighbors of pos part of the
// frontier, attached to pos.
func (e *Engine) expandAround(pos grid.Position, d *Delta) {
	pn, _ := e.store.Node(pos)
	for _, n := range pos.Neighbors() {
		if e.store.State(n) != Inactive || e.frontier.Blocked(n) {
			continue
		}
		if e.bounds != nil && !e.bounds.Contains(n) {
			continue
		}
		if e.corridors && e.activeNeighbors(n) > 1 {
			e.frontier.block(n)
			continue
		}
		depth := pn.Depth + 1
		if e.maxDepth > 0 && depth > e.maxDepth {
			continue
		}
		e.frontier.add(n, pos)
		e.store.putFrontier(n, pos, depth)
		d.AddedFrontier = append(d.AddedFrontier, FrontierEntry{Pos: n, Parent: pos})
	}
}

// activeNeighbors counts the active neighbors of pos.
func (e *Engine) activeNeighbors(pos grid.Position) int {
	n := 0
	for _, q := range pos.Neighbors() {
		if e.store.State(q) == Active {
			n++
		}
	}
	return n
}

// Initialized reports whether Initialize has run since creation or Reset.
func (e *Engine) Initialized() bool {
	return e.initialized
}

// Changes is the stream of every applied delta.
func (e *Engine) Changes() *event.Stream[Delta] {
	return &e.changes
}

// Frontier returns the currently eligible positions in the order they
// became eligible.
func (e *Engine) Frontier() []grid.Position {
	return e.frontier.Positions()
}

// FrontierEntries returns eligible positions with their recorded parents.
func (e *Engine) FrontierEntries() []FrontierEntry {
	return e.frontier.Entries()
}

// InFrontier reports whether pos can be activated.
func (e *Engine) InFrontier(pos grid.Position) bool {
	return e.frontier.Contains(pos)
}

// State returns the state of pos.
func (e *Engine) State(pos grid.Position) NodeState {
	return e.store.State(pos)
}

// Parent returns the parent of a non-Inactive position.
func (e *Engine) Parent(pos grid.Position) (grid.Position, bool, error) {
	return e.store.Parent(pos)
}

// Edge returns the state of an active node's edge.
func (e *Engine) Edge(pos grid.Position, d grid.Direction) (EdgeState, error) {
	return e.store.Edge(pos, d)
}

// Node returns a copy of the record at pos.
func (e *Engine) Node(pos grid.Position) (Node, bool) {
	return e.store.Node(pos)
}

// Root returns the root position.
func (e *Engine) Root() (grid.Position, bool) {
	return e.store.Root()
}

// ActiveCount returns the number of active nodes.
func (e *Engine) ActiveCount() int {
	return e.store.ActiveCount()
}

// ActiveNodes returns copies of every active node in activation order.
func (e *Engine) ActiveNodes() []Node {
	positions := e.store.ActivePositions()
	out := make([]Node, 0, len(positions))
	for _, pos := range positions {
		n, _ := e.store.Node(pos)
		out = append(out, n)
	}
	return out
}

// Subtree returns pos and all of its active descendants.
func (e *Engine) Subtree(pos grid.Position) []grid.Position {
	return e.store.Subtree(pos)
}

// Bounds returns the growth bounds, if any.
func (e *Engine) Bounds() (grid.Rect, bool) {
	if e.bounds == nil {
		return grid.Rect{}, false
	}
	return *e.bounds, true
}

// Check verifies the tree invariants.
func (e *Engine) Check() error {
	return e.store.Check()
}
