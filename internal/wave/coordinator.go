package wave

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -source=$GOFILE -destination=mock_$GOFILE -package=$GOPACKAGE

import (
	"iter"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tomz197/outgrowth/internal/event"
	"github.com/tomz197/outgrowth/internal/graph"
)

// PathSource yields the paths agents are spawned on. *graph.Engine
// implements it.
type PathSource interface {
	LeafPaths() (iter.Seq[graph.Path], error)
}

// State of a Coordinator.
type State int

const (
	Idle State = iota
	Spawning
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spawning:
		return "spawning"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Config holds the wave tunables.
type Config struct {
	Interval time.Duration // Time between batches
	Target   int           // Batches per wave
	Strength float64       // Strength of spawned agents
}

// Batch is published once per spawn batch.
type Batch struct {
	Number int // 1-based batch counter within the wave
	Agents []*Agent
}

// Summary is published when a wave reaches its target.
type Summary struct {
	Batches int
	Agents  int
}

// Coordinator spawns one agent per leaf path every Interval until Target
// batches fired. It is driven by a single game loop.
type Coordinator struct {
	cfg     Config
	source  PathSource
	roster  *Roster
	state   State
	timer   time.Duration
	count   int
	spawned int

	batches  event.Stream[Batch]
	finished event.Stream[Summary]
}

// NewCoordinator validates cfg and returns an idle coordinator.
func NewCoordinator(cfg Config, source PathSource, roster *Roster) (*Coordinator, error) {
	switch {
	case cfg.Interval <= 0:
		return nil, errors.Newf("wave: interval must be positive, got %s", cfg.Interval)
	case cfg.Target <= 0:
		return nil, errors.Newf("wave: target must be positive, got %d", cfg.Target)
	case cfg.Strength <= 0:
		return nil, errors.Newf("wave: strength must be positive, got %g", cfg.Strength)
	case source == nil || roster == nil:
		return nil, errors.New("wave: coordinator needs a path source and a roster")
	}
	return &Coordinator{cfg: cfg, source: source, roster: roster}, nil
}

// Start begins a new wave from a zero timer and counter.
func (c *Coordinator) Start() {
	c.timer = 0
	c.count = 0
	c.spawned = 0
	c.state = Spawning
}

// Disable stops spawning without touching live agents.
func (c *Coordinator) Disable() {
	c.state = Idle
	c.timer = 0
}

// Update advances the spawn timer by dt and fires every batch that became
// due. It returns the agents spawned during this call.
func (c *Coordinator) Update(dt time.Duration) ([]*Agent, error) {
	if c.state != Spawning {
		return nil, nil
	}
	c.timer += dt

	var out []*Agent
	for c.timer > c.cfg.Interval {
		c.timer -= c.cfg.Interval
		agents, err := c.spawnBatch()
		if err != nil {
			return out, err
		}
		out = append(out, agents...)
		c.count++
		c.spawned += len(agents)
		c.batches.Publish(Batch{Number: c.count, Agents: agents})

		if c.count >= c.cfg.Target {
			c.state = Finished
			c.timer = 0
			c.finished.Publish(Summary{Batches: c.count, Agents: c.spawned})
			break
		}
	}
	return out, nil
}

func (c *Coordinator) spawnBatch() ([]*Agent, error) {
	paths, err := c.source.LeafPaths()
	if err != nil {
		return nil, errors.Wrap(err, "wave: extract paths")
	}
	var agents []*Agent
	for p := range paths {
		a, err := c.roster.Spawn(p, c.cfg.Strength, Normal, c.count+1)
		if err != nil {
			return agents, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// State returns the current state.
func (c *Coordinator) State() State {
	return c.state
}

// Count returns the number of batches fired in the current wave.
func (c *Coordinator) Count() int {
	return c.count
}

// Remaining returns how many batches are left in the current wave.
func (c *Coordinator) Remaining() int {
	return max(c.cfg.Target-c.count, 0)
}

// Config returns the coordinator settings.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Batches is the stream of fired batches.
func (c *Coordinator) Batches() *event.Stream[Batch] {
	return &c.batches
}

// Finished is the stream of completed waves.
func (c *Coordinator) Finished() *event.Stream[Summary] {
	return &c.finished
}
