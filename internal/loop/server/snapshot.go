package server

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/zyedidia/generic/mapset"

	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/physics"
	"github.com/tomz197/outgrowth/internal/scene"
	"github.com/tomz197/outgrowth/internal/wave"
)

// topScoreCount is how many entries the leaderboard shows.
const topScoreCount = 5

// TopScoreEntry represents a single entry on the leaderboard.
type TopScoreEntry struct {
	Username string
	Score    int
	clientID int // Used for deterministic tie-break when scores are equal
}

// NodeView is an active node as clients see it.
type NodeView struct {
	Pos   grid.Position
	Edges [grid.NumDirections]graph.EdgeState
	Depth int
	Root  bool
}

// AgentView is an agent as clients see it.
type AgentView struct {
	ID       uuid.UUID
	Cell     grid.Position
	Point    physics.Point // Interpolated world position
	Strength float64
	Tier     wave.Tier
}

// WorldSnapshot is an immutable snapshot of the world state for rendering.
type WorldSnapshot struct {
	Phase       Phase
	Nodes       []NodeView
	Frontier    []grid.Position
	Agents      []AgentView
	Bounds      grid.Rect
	BaseHealth  float64
	MaxHealth   float64
	Wave        int
	BatchesLeft int
	Players     int
	Delta       time.Duration
	TopScores   []TopScoreEntry

	nodeIndex map[grid.Position]int
	frontier  mapset.Set[grid.Position]
}

// Node returns the active node at pos.
func (s *WorldSnapshot) Node(pos grid.Position) (NodeView, bool) {
	i, ok := s.nodeIndex[pos]
	if !ok {
		return NodeView{}, false
	}
	return s.Nodes[i], true
}

// InFrontier reports whether pos can be expanded.
func (s *WorldSnapshot) InFrontier(pos grid.Position) bool {
	return s.frontier.Has(pos)
}

// AgentsAt returns the agents standing on pos.
func (s *WorldSnapshot) AgentsAt(pos grid.Position) []AgentView {
	return lo.Filter(s.Agents, func(a AgentView, _ int) bool { return a.Cell == pos })
}

// Root returns the base position.
func (s *WorldSnapshot) Root() grid.Position {
	for _, n := range s.Nodes {
		if n.Root {
			return n.Pos
		}
	}
	return grid.Position{}
}

func buildSnapshot(w *WorldState, clients map[int]*ClientHandle) *WorldSnapshot {
	bounds, _ := w.Engine.Bounds()
	snap := &WorldSnapshot{
		Phase: w.Phase,
		Nodes: lo.Map(w.Engine.ActiveNodes(), func(n graph.Node, _ int) NodeView {
			return NodeView{Pos: n.Pos, Edges: n.Edges, Depth: n.Depth, Root: !n.HasParent}
		}),
		Frontier: w.Engine.Frontier(),
		Agents: lo.Map(w.Roster.Agents(), func(a *wave.Agent, _ int) AgentView {
			return AgentView{
				ID:       a.ID,
				Cell:     a.Cell(),
				Point:    scene.AgentPoint(a, config.CellSpacing, config.AgentStepTime),
				Strength: a.Strength,
				Tier:     a.Tier,
			}
		}),
		Bounds:      bounds,
		BaseHealth:  w.BaseHealth,
		MaxHealth:   w.MaxHealth,
		Wave:        w.WaveNumber,
		BatchesLeft: w.Waves.Remaining(),
		Players:     len(clients),
		Delta:       w.Delta,
		TopScores:   topScores(clients),
		nodeIndex:   make(map[grid.Position]int),
		frontier:    mapset.New[grid.Position](),
	}
	if w.Phase != PhaseDefend {
		snap.BatchesLeft = 0
	}
	for i, n := range snap.Nodes {
		snap.nodeIndex[n.Pos] = i
	}
	for _, pos := range snap.Frontier {
		snap.frontier.Put(pos)
	}
	return snap
}

func topScores(clients map[int]*ClientHandle) []TopScoreEntry {
	entries := lo.MapToSlice(clients, func(id int, h *ClientHandle) TopScoreEntry {
		return TopScoreEntry{Username: h.Username, Score: h.Score, clientID: id}
	})
	slices.SortFunc(entries, func(a, b TopScoreEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return a.clientID - b.clientID
	})
	return entries[:min(len(entries), topScoreCount)]
}
