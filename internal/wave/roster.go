package wave

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/uuid"

	"github.com/tomz197/outgrowth/internal/event"
	"github.com/tomz197/outgrowth/internal/graph"
)

// RemovalReason tells why an agent left the roster.
type RemovalReason int

const (
	ReasonNone RemovalReason = iota
	ReasonReachedRoot
	ReasonMerged
	ReasonKilled
	ReasonCleared
)

func (r RemovalReason) String() string {
	switch r {
	case ReasonReachedRoot:
		return "reached_root"
	case ReasonMerged:
		return "merged"
	case ReasonKilled:
		return "killed"
	case ReasonCleared:
		return "cleared"
	default:
		return "none"
	}
}

// AgentEvent is published when an agent joins or leaves the roster. Reason is
// ReasonNone for spawns.
type AgentEvent struct {
	Agent  *Agent
	Reason RemovalReason
}

type notice struct {
	ev      AgentEvent
	removed bool
}

// Roster owns the set of live agents. It is safe for concurrent use; events
// are delivered outside the roster lock, one publisher at a time, in the
// order the changes were made.
type Roster struct {
	mu     sync.Mutex
	agents *linkedhashmap.Map // uuid.UUID -> *Agent, spawn order
	outbox []notice

	emitting sync.Mutex
	spawned  event.Stream[AgentEvent]
	removed  event.Stream[AgentEvent]
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{agents: linkedhashmap.New()}
}

// Spawned is the stream of agents added by spawns and merges.
func (r *Roster) Spawned() *event.Stream[AgentEvent] {
	return &r.spawned
}

// Removed is the stream of agents leaving the roster.
func (r *Roster) Removed() *event.Stream[AgentEvent] {
	return &r.removed
}

// Spawn adds a new agent at the leaf end of path.
func (r *Roster) Spawn(path graph.Path, strength float64, tier Tier, wave int) (*Agent, error) {
	if len(path) == 0 {
		return nil, errors.New("wave: spawn on an empty path")
	}
	a := &Agent{
		ID:       uuid.New(),
		Strength: strength,
		Path:     path,
		Tier:     tier,
		Wave:     wave,
	}
	r.mu.Lock()
	r.addLocked(a)
	r.mu.Unlock()
	r.flush()
	return a, nil
}

// AttemptMerge replaces a and b with one agent carrying their summed strength
// and a's path, progress and timer, one tier above a. It does nothing and
// returns false when a and b are the same agent, either is no longer in the
// roster, either already merged, or either is MaxElevated.
func (r *Roster) AttemptMerge(a, b *Agent) (*Agent, bool) {
	if a == nil || b == nil || a == b {
		return nil, false
	}
	r.mu.Lock()
	if !r.liveLocked(a) || !r.liveLocked(b) ||
		a.merged.Load() || b.merged.Load() ||
		a.Tier == MaxElevated || b.Tier == MaxElevated {
		r.mu.Unlock()
		return nil, false
	}
	a.merged.Store(true)
	b.merged.Store(true)
	merged := &Agent{
		ID:       uuid.New(),
		Strength: a.Strength + b.Strength,
		Path:     a.Path,
		Progress: a.Progress,
		Timer:    a.Timer,
		Tier:     a.Tier.Elevate(),
		Wave:     max(a.Wave, b.Wave),
	}
	r.removeLocked(a, ReasonMerged)
	r.removeLocked(b, ReasonMerged)
	r.addLocked(merged)
	r.mu.Unlock()
	r.flush()
	return merged, true
}

// Damage lowers a's strength. It reports true when the agent died and was
// removed.
func (r *Roster) Damage(a *Agent, amount float64) bool {
	r.mu.Lock()
	if !r.liveLocked(a) {
		r.mu.Unlock()
		return false
	}
	a.Strength -= amount
	killed := a.Strength <= 0
	if killed {
		r.removeLocked(a, ReasonKilled)
	}
	r.mu.Unlock()
	r.flush()
	return killed
}

// Advance moves every agent along its path, one node per stepTime, and
// removes the agents that reached the root. Those are returned in spawn
// order.
func (r *Roster) Advance(dt, stepTime time.Duration) []*Agent {
	if stepTime <= 0 {
		return nil
	}
	var reached []*Agent
	r.mu.Lock()
	for _, a := range r.agentsLocked() {
		if !a.AtRoot() {
			a.Timer += dt
			for a.Timer >= stepTime && !a.AtRoot() {
				a.Timer -= stepTime
				a.Progress++
			}
		}
		if a.AtRoot() {
			a.Timer = 0
			r.removeLocked(a, ReasonReachedRoot)
			reached = append(reached, a)
		}
	}
	r.mu.Unlock()
	r.flush()
	return reached
}

// Clear removes every agent.
func (r *Roster) Clear() {
	r.mu.Lock()
	for _, a := range r.agentsLocked() {
		r.removeLocked(a, ReasonCleared)
	}
	r.mu.Unlock()
	r.flush()
}

// Agents returns the live agents in spawn order.
func (r *Roster) Agents() []*Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agentsLocked()
}

// Len returns the number of live agents.
func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents.Size()
}

// Get returns the live agent with the given ID.
func (r *Roster) Get(id uuid.UUID) (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.agents.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Agent), true
}

func (r *Roster) agentsLocked() []*Agent {
	out := make([]*Agent, 0, r.agents.Size())
	it := r.agents.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Agent))
	}
	return out
}

// liveLocked reports whether a belongs to this roster and has not left it.
func (r *Roster) liveLocked(a *Agent) bool {
	if a == nil || a.removed {
		return false
	}
	_, ok := r.agents.Get(a.ID)
	return ok
}

func (r *Roster) addLocked(a *Agent) {
	r.agents.Put(a.ID, a)
	r.outbox = append(r.outbox, notice{ev: AgentEvent{Agent: a}})
}

func (r *Roster) removeLocked(a *Agent, reason RemovalReason) {
	a.removed = true
	r.agents.Remove(a.ID)
	r.outbox = append(r.outbox, notice{ev: AgentEvent{Agent: a, Reason: reason}, removed: true})
}

// flush delivers queued events. Only one goroutine publishes at a time; a
// call that finds another publisher active leaves its events to it. Handlers
// may call back into the roster.
func (r *Roster) flush() {
	for {
		if !r.emitting.TryLock() {
			return
		}
		for {
			r.mu.Lock()
			batch := r.outbox
			r.outbox = nil
			r.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, n := range batch {
				if n.removed {
					r.removed.Publish(n.ev)
				} else {
					r.spawned.Publish(n.ev)
				}
			}
		}
		r.emitting.Unlock()

		r.mu.Lock()
		more := len(r.outbox) > 0
		r.mu.Unlock()
		if !more {
			return
		}
	}
}
