package server

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	"github.com/tomz197/outgrowth/internal/event"
	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/logging"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/metrics"
	"github.com/tomz197/outgrowth/internal/physics"
	"github.com/tomz197/outgrowth/internal/scene"
	"github.com/tomz197/outgrowth/internal/wave"
)

// Phase is the shared game phase.
type Phase int

const (
	PhaseExpand Phase = iota // Waiting for a player to grow the tree
	PhaseDefend              // A wave is running
	PhaseLost                // The base fell; waiting for a restart
)

func (p Phase) String() string {
	switch p {
	case PhaseExpand:
		return "expand"
	case PhaseDefend:
		return "defend"
	case PhaseLost:
		return "lost"
	default:
		return "unknown"
	}
}

// ErrWrongPhase is returned for commands that do not apply to the current
// phase.
var ErrWrongPhase = errors.New("server: command not allowed in this phase")

// WorldOptions configures a WorldState.
type WorldOptions struct {
	Seed       int64   // 0 picks a random seed
	Corridors  bool    // Keep branches from touching
	MaxDepth   int     // 0 leaves branch depth unlimited
	BaseHealth float64 // 0 uses config.BaseHealth
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// BaseHit reports an agent reaching the root.
type BaseHit struct {
	Agent  *wave.Agent
	Damage float64
	Health float64 // Remaining health
}

// WorldState holds the shared game: the tree, the agents and the phase. It
// is owned by the server goroutine.
type WorldState struct {
	Engine *graph.Engine
	Roster *wave.Roster
	Waves  *wave.Coordinator

	Phase      Phase
	BaseHealth float64
	MaxHealth  float64
	WaveNumber int
	Delta      time.Duration // Last tick length

	rng      *rand.Rand
	contacts *physics.SpatialHash
	logger   *log.Logger
	metrics  *metrics.Metrics

	baseHits  event.Stream[BaseHit]
	lost      event.Stream[int] // Wave number the base fell in
	teardowns []func()
}

// NewWorldState builds a world and generates its starting map.
func NewWorldState(opts WorldOptions) (*WorldState, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	health := opts.BaseHealth
	if health <= 0 {
		health = config.BaseHealth
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	engineOpts := []graph.Option{
		graph.WithBounds(grid.RectAround(grid.Pos(0, 0), config.BoardRadiusX, config.BoardRadiusY)),
	}
	if opts.Corridors {
		engineOpts = append(engineOpts, graph.WithCorridors())
	}
	if opts.MaxDepth > 0 {
		engineOpts = append(engineOpts, graph.WithMaxDepth(opts.MaxDepth))
	}
	engine := graph.NewEngine(engineOpts...)
	roster := wave.NewRoster()
	waves, err := wave.NewCoordinator(wave.Config{
		Interval: config.WaveInterval,
		Target:   config.WaveTarget,
		Strength: config.AgentStrength,
	}, engine, roster)
	if err != nil {
		return nil, err
	}

	w := &WorldState{
		Engine:    engine,
		Roster:    roster,
		Waves:     waves,
		MaxHealth: health,
		rng:       rand.New(rand.NewSource(seed)),
		contacts:  physics.NewSpatialHash(config.CellSpacing * 2),
		logger:    logger,
		metrics:   opts.Metrics,
	}
	w.observe()
	if err := w.generate(); err != nil {
		return nil, err
	}
	logger.Debug("world generated", "seed", seed, "nodes", engine.ActiveCount())
	return w, nil
}

// observe wires the notification streams to logging and metrics.
func (w *WorldState) observe() {
	subs := []interface{ Unsubscribe() }{
		w.Engine.Changes().Subscribe(func(d graph.Delta) {
			w.logger.Debug("tree changed",
				"activated", d.Activated, "frontier+", len(d.AddedFrontier), "frontier-", len(d.RemovedFrontier))
			if w.metrics != nil {
				w.metrics.ActiveNodes.Set(float64(w.Engine.ActiveCount()))
			}
		}),
		w.Waves.Finished().Subscribe(func(s wave.Summary) {
			w.logger.Debug("wave spawned out", "wave", w.WaveNumber, "batches", s.Batches, "agents", s.Agents)
			if w.metrics != nil {
				w.metrics.WavesFinished.Inc()
			}
		}),
	}
	if w.metrics != nil {
		m := w.metrics
		subs = append(subs,
			w.Roster.Spawned().Subscribe(func(wave.AgentEvent) {
				m.AgentsSpawned.Inc()
				m.LiveAgents.Inc()
			}),
			w.Roster.Removed().Subscribe(func(ev wave.AgentEvent) {
				m.AgentsRemoved.WithLabelValues(ev.Reason.String()).Inc()
				m.LiveAgents.Dec()
			}),
		)
	}
	for _, sub := range subs {
		w.teardowns = append(w.teardowns, sub.Unsubscribe)
	}
}

// Close detaches the world's own subscribers.
func (w *WorldState) Close() {
	for _, fn := range w.teardowns {
		fn()
	}
	w.teardowns = nil
	w.baseHits.Close()
	w.lost.Close()
}

// BaseHits is the stream of agents reaching the root.
func (w *WorldState) BaseHits() *event.Stream[BaseHit] {
	return &w.baseHits
}

// Lost is published once when the base falls.
func (w *WorldState) Lost() *event.Stream[int] {
	return &w.lost
}

// generate creates the root and makes the starting random expansions.
func (w *WorldState) generate() error {
	if _, err := w.Engine.Initialize(); err != nil {
		return err
	}
	for range config.InitialExpansions {
		frontier := w.Engine.Frontier()
		if len(frontier) == 0 {
			break
		}
		if _, err := w.Engine.Activate(frontier[w.rng.Intn(len(frontier))]); err != nil {
			return err
		}
	}
	w.Phase = PhaseExpand
	w.BaseHealth = w.MaxHealth
	w.WaveNumber = 0
	return nil
}

// Expand grows the tree at pos and starts the next wave.
func (w *WorldState) Expand(pos grid.Position) error {
	if w.Phase != PhaseExpand {
		return errors.Wrapf(ErrWrongPhase, "expand in %s", w.Phase)
	}
	if _, err := w.Engine.Activate(pos); err != nil {
		if w.metrics != nil {
			w.metrics.RejectedExpansions.Inc()
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.Expansions.Inc()
	}
	w.startWave()
	return nil
}

func (w *WorldState) startWave() {
	w.WaveNumber++
	w.Waves.Start()
	w.Phase = PhaseDefend
	w.logger.Debug("wave started", "wave", w.WaveNumber, "leaves", len(w.Engine.Leaves()))
}

// Strike damages every agent standing on pos and returns the strength of
// the agents it killed.
func (w *WorldState) Strike(pos grid.Position) (killedStrength float64, err error) {
	if w.Phase != PhaseDefend {
		return 0, errors.Wrapf(ErrWrongPhase, "strike in %s", w.Phase)
	}
	for _, a := range w.Roster.Agents() {
		if a.Cell() != pos {
			continue
		}
		before := a.Strength
		if w.Roster.Damage(a, config.StrikeDamage) {
			killedStrength += before
		}
	}
	return killedStrength, nil
}

// Restart rebuilds the map after the base fell.
func (w *WorldState) Restart() error {
	if w.Phase != PhaseLost {
		return errors.Wrapf(ErrWrongPhase, "restart in %s", w.Phase)
	}
	w.Waves.Disable()
	w.Roster.Clear()
	w.Engine.Reset()
	return w.generate()
}

// Update advances the world by dt.
func (w *WorldState) Update(dt time.Duration) error {
	w.Delta = dt
	switch w.Phase {
	case PhaseExpand:
		// A full board has nothing left to expand into; keep the waves coming.
		if len(w.Engine.Frontier()) > 0 {
			return nil
		}
		w.startWave()
		return nil
	case PhaseLost:
		return nil
	}

	if _, err := w.Waves.Update(dt); err != nil {
		return err
	}
	for _, a := range w.Roster.Advance(dt, config.AgentStepTime) {
		w.hitBase(a)
		if w.Phase == PhaseLost {
			return nil
		}
	}
	w.mergeContacts()

	if w.Waves.State() == wave.Finished && w.Roster.Len() == 0 {
		w.Phase = PhaseExpand
		w.logger.Debug("wave cleared", "wave", w.WaveNumber, "health", w.BaseHealth)
	}
	return nil
}

func (w *WorldState) hitBase(a *wave.Agent) {
	w.BaseHealth -= a.Strength
	if w.metrics != nil {
		w.metrics.BaseDamage.Add(a.Strength)
	}
	w.baseHits.Publish(BaseHit{Agent: a, Damage: a.Strength, Health: w.BaseHealth})
	if w.BaseHealth > 0 {
		return
	}
	w.BaseHealth = 0
	w.Phase = PhaseLost
	w.Waves.Disable()
	w.Roster.Clear()
	w.logger.Info("base fell", "wave", w.WaveNumber, "nodes", w.Engine.ActiveCount())
	w.lost.Publish(w.WaveNumber)
}

// mergeContacts merges agents closer than the contact radius. Each pair is
// tried with the older agent first so the merged agent keeps its path.
func (w *WorldState) mergeContacts() {
	agents := w.Roster.Agents()
	if len(agents) < 2 {
		return
	}
	w.contacts.Clear()
	for _, a := range agents {
		w.contacts.Insert(scene.AgentPoint(a, config.CellSpacing, config.AgentStepTime))
	}
	w.contacts.Contacts(config.ContactRadius, func(i, j int) {
		if m, ok := w.Roster.AttemptMerge(agents[i], agents[j]); ok {
			if w.metrics != nil {
				w.metrics.Merges.Inc()
			}
			w.logger.Debug("agents merged", "strength", m.Strength, "tier", m.Tier, "cell", m.Cell())
		}
	})
}
