package server

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/logging"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/metrics"
)

// GameServer is what a client needs from the shared world.
type GameServer interface {
	RegisterClient(username string) *ClientHandle
	UnregisterClient(clientID int)
	SendCommand(cmd Command)
	GetSnapshot() *WorldSnapshot
}

// Server manages the shared world state and processes commands from all clients.
type Server struct {
	world        *WorldState
	snapshot     atomic.Pointer[WorldSnapshot]
	clients      map[int]*ClientHandle
	nextClientID int
	commandCh    chan Command
	registerCh   chan *ClientHandle
	unregisterCh chan int
	mu           sync.RWMutex
	logger       *log.Logger
	metrics      *metrics.Metrics
}

var _ GameServer = (*Server)(nil)

// ClientHandle is the server's record of one connected player.
type ClientHandle struct {
	ID       int
	Username string           // Display name for this client
	EventsCh chan ClientEvent // Events sent to client (score, base hits, etc.)
	Score    int

	strikeCooldown time.Duration // Remaining time before the next strike counts
}

// CommandType identifies what a client asks for.
type CommandType int

const (
	CmdExpand  CommandType = iota // Activate the frontier cell at Pos
	CmdStrike                     // Damage agents on the cell at Pos
	CmdRestart                    // Rebuild the map after the base fell
)

// Command is one request from a client.
type Command struct {
	ClientID int
	Type     CommandType
	Pos      grid.Position
}

// ClientEvent is a notification for one client.
type ClientEvent struct {
	Type     ClientEventType
	Pos      grid.Position // For expansions and rejections
	ScoreAdd int           // For score events
	Damage   float64       // For base hits
	Reason   string        // For rejections
	Wave     int
}

// ClientEventType says what a ClientEvent reports.
type ClientEventType int

const (
	EventExpandRejected ClientEventType = iota
	EventExpanded
	EventScoreAdd
	EventBaseHit
	EventWaveCleared
	EventGameLost
	EventRestarted
	EventServerShutdown
)

// Options configures NewServer.
type Options struct {
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	Seed       int64
	Corridors  bool
	MaxDepth   int
	BaseHealth float64
}

// NewServer creates a new game server with a freshly generated map.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	world, err := NewWorldState(WorldOptions{
		Seed:       opts.Seed,
		Corridors:  opts.Corridors,
		MaxDepth:   opts.MaxDepth,
		BaseHealth: opts.BaseHealth,
		Logger:     logger,
		Metrics:    opts.Metrics,
	})
	if err != nil {
		return nil, errors.Wrap(err, "server: build world")
	}

	s := &Server{
		world:        world,
		clients:      make(map[int]*ClientHandle),
		nextClientID: 1,
		commandCh:    make(chan Command, 256),
		registerCh:   make(chan *ClientHandle, 16),
		unregisterCh: make(chan int, 16),
		logger:       logger,
		metrics:      opts.Metrics,
	}

	// World events fire inside updateWorld, which holds the lock.
	world.BaseHits().Subscribe(func(hit BaseHit) {
		s.broadcastLocked(ClientEvent{Type: EventBaseHit, Damage: hit.Damage, Pos: hit.Agent.Cell(), Wave: world.WaveNumber})
	})
	world.Lost().Subscribe(func(waveNumber int) {
		s.broadcastLocked(ClientEvent{Type: EventGameLost, Wave: waveNumber})
	})

	s.createSnapshot()
	return s, nil
}

// Run ticks the world at config.ServerTickRate until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("game server started", "nodes", s.world.Engine.ActiveCount())
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.world.Close()
			s.logger.Info("game server stopped")
			return
		default:
		}

		frameStart := time.Now()
		s.Step(frameStart.Sub(lastTime))
		lastTime = frameStart

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ServerTickTime {
			time.Sleep(config.ServerTickTime - elapsed)
		}
	}
}

// Step runs one server tick of length dt.
func (s *Server) Step(dt time.Duration) {
	s.processRegistrations()
	s.collectCommands(dt)
	s.updateWorld(dt)
	s.createSnapshot()
}

// Shutdown tells every client the server is going away and waits up to
// timeout for them to leave. Cancel the Run context afterwards.
func (s *Server) Shutdown(timeout time.Duration) {
	s.broadcast(ClientEvent{Type: EventServerShutdown})

	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient queues a new player; the next tick adds it to the world.
// Long usernames are cut to config.MaxUsernameLength.
func (s *Server) RegisterClient(username string) *ClientHandle {
	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	s.mu.Unlock()

	if len(username) > config.MaxUsernameLength {
		username = username[:config.MaxUsernameLength]
	}
	handle := &ClientHandle{
		ID:       id,
		Username: username,
		EventsCh: make(chan ClientEvent, 16),
	}

	s.registerCh <- handle
	return handle
}

// UnregisterClient queues the removal of a player. Its EventsCh is closed.
func (s *Server) UnregisterClient(clientID int) {
	s.unregisterCh <- clientID
}

// SendCommand queues a command for the next tick.
func (s *Server) SendCommand(cmd Command) {
	select {
	case s.commandCh <- cmd:
	default:
		// Command channel full, drop command
		s.logger.Warn("command dropped", "client", cmd.ClientID, "type", cmd.Type)
	}
}

// GetSnapshot returns the snapshot published by the last tick.
func (s *Server) GetSnapshot() *WorldSnapshot {
	return s.snapshot.Load()
}

// processRegistrations applies queued joins and leaves.
func (s *Server) processRegistrations() {
	for {
		select {
		case handle := <-s.registerCh:
			s.mu.Lock()
			s.clients[handle.ID] = handle
			n := len(s.clients)
			s.mu.Unlock()
			s.logger.Info("client registered", "id", handle.ID, "user", handle.Username, "players", n)
			if s.metrics != nil {
				s.metrics.Players.Set(float64(n))
			}
		case clientID := <-s.unregisterCh:
			s.mu.Lock()
			if handle, ok := s.clients[clientID]; ok {
				close(handle.EventsCh)
				delete(s.clients, clientID)
			}
			n := len(s.clients)
			s.mu.Unlock()
			s.logger.Info("client unregistered", "id", clientID, "players", n)
			if s.metrics != nil {
				s.metrics.Players.Set(float64(n))
			}
		default:
			return
		}
	}
}

// collectCommands applies all pending commands in arrival order.
func (s *Server) collectCommands(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, handle := range s.clients {
		handle.strikeCooldown = max(handle.strikeCooldown-dt, 0)
	}

	for {
		select {
		case cmd := <-s.commandCh:
			handle, ok := s.clients[cmd.ClientID]
			if !ok {
				continue
			}
			s.apply(handle, cmd)
		default:
			return
		}
	}
}

// apply runs one command. Must be called with lock held.
func (s *Server) apply(handle *ClientHandle, cmd Command) {
	switch cmd.Type {
	case CmdExpand:
		if err := s.world.Expand(cmd.Pos); err != nil {
			s.logger.Warn("expansion rejected", "client", handle.ID, "pos", cmd.Pos, "err", err)
			send(handle, ClientEvent{Type: EventExpandRejected, Pos: cmd.Pos, Reason: rejection(err)})
			return
		}
		s.logger.Info("tree expanded", "client", handle.ID, "user", handle.Username, "pos", cmd.Pos, "wave", s.world.WaveNumber)
		s.broadcastLocked(ClientEvent{Type: EventExpanded, Pos: cmd.Pos, Wave: s.world.WaveNumber})

	case CmdStrike:
		if handle.strikeCooldown > 0 {
			return
		}
		killed, err := s.world.Strike(cmd.Pos)
		if err != nil {
			return
		}
		handle.strikeCooldown = config.StrikeCooldown
		if points := int(math.Round(killed * config.ScorePerStrength)); points > 0 {
			handle.Score += points
			send(handle, ClientEvent{Type: EventScoreAdd, ScoreAdd: points, Pos: cmd.Pos})
		}

	case CmdRestart:
		if err := s.world.Restart(); err != nil {
			s.logger.Debug("restart ignored", "client", handle.ID, "err", err)
			return
		}
		s.logger.Info("map restarted", "client", handle.ID)
		for _, h := range s.clients {
			h.Score = 0
		}
		s.broadcastLocked(ClientEvent{Type: EventRestarted})
	}
}

// rejection turns an expansion error into a message for the player.
func rejection(err error) string {
	switch {
	case errors.Is(err, ErrWrongPhase):
		return "wait for the wave to end"
	default:
		return "that cell cannot grow"
	}
}

// updateWorld advances the world and reports phase transitions.
func (s *Server) updateWorld(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.world.Phase
	if err := s.world.Update(dt); err != nil {
		s.logger.Error("world update failed", "err", err)
	}
	if before == PhaseDefend && s.world.Phase == PhaseExpand {
		s.logger.Info("wave cleared", "wave", s.world.WaveNumber, "health", s.world.BaseHealth)
		s.broadcastLocked(ClientEvent{Type: EventWaveCleared, Wave: s.world.WaveNumber})
	}
}

// createSnapshot publishes an immutable snapshot of the world state.
func (s *Server) createSnapshot() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.snapshot.Store(buildSnapshot(s.world, s.clients))
}

// broadcast sends ev to every client.
func (s *Server) broadcast(ev ClientEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(ev)
}

func (s *Server) broadcastLocked(ev ClientEvent) {
	for _, handle := range s.clients {
		send(handle, ev)
	}
}

// send delivers ev without blocking the server loop.
func send(handle *ClientHandle, ev ClientEvent) {
	select {
	case handle.EventsCh <- ev:
	default:
	}
}

// World exposes the world for tests running in the server goroutine.
func (s *Server) World() *WorldState {
	return s.world
}
