package server

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/metrics"
	"github.com/tomz197/outgrowth/internal/wave"
)

func newServer(t *testing.T, m *metrics.Metrics) *Server {
	t.Helper()
	s, err := NewServer(Options{Seed: 42, Metrics: m})
	require.NoError(t, err)
	return s
}

// join registers a client and processes the registration.
func join(t *testing.T, s *Server, name string) *ClientHandle {
	t.Helper()
	h := s.RegisterClient(name)
	s.Step(0)
	return h
}

// drain returns every event waiting for h.
func drain(h *ClientHandle) []ClientEvent {
	var out []ClientEvent
	for {
		select {
		case ev, ok := <-h.EventsCh:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []ClientEvent) []ClientEventType {
	types := make([]ClientEventType, len(evs))
	for i, ev := range evs {
		types[i] = ev.Type
	}
	return types
}

func TestRegisterClientShowsInSnapshot(t *testing.T) {
	m := metrics.New()
	s := newServer(t, m)
	require.NotNil(t, s.GetSnapshot())
	assert.Equal(t, 0, s.GetSnapshot().Players)

	a := join(t, s, "alice")
	b := join(t, s, strings.Repeat("b", 40))

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, b.Username, config.MaxUsernameLength)
	snap := s.GetSnapshot()
	assert.Equal(t, 2, snap.Players)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Players), 1e-9)

	s.UnregisterClient(a.ID)
	s.Step(0)
	assert.Equal(t, 1, s.GetSnapshot().Players)
	_, open := <-a.EventsCh
	assert.False(t, open)
}

func TestSnapshotMirrorsWorld(t *testing.T) {
	s := newServer(t, nil)
	snap := s.GetSnapshot()
	w := s.World()

	assert.Equal(t, PhaseExpand, snap.Phase)
	assert.Len(t, snap.Nodes, w.Engine.ActiveCount())
	assert.Equal(t, w.Engine.Frontier(), snap.Frontier)
	assert.Equal(t, grid.Pos(0, 0), snap.Root())
	assert.Equal(t, grid.RectAround(grid.Pos(0, 0), config.BoardRadiusX, config.BoardRadiusY), snap.Bounds)

	root, ok := snap.Node(grid.Pos(0, 0))
	require.True(t, ok)
	assert.True(t, root.Root)
	assert.Equal(t, 0, root.Depth)
	for _, pos := range snap.Frontier {
		assert.True(t, snap.InFrontier(pos))
		_, active := snap.Node(pos)
		assert.False(t, active)
	}
	assert.Equal(t, 0, snap.BatchesLeft)
}

func TestExpandCommandStartsWaveForEveryone(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")
	b := join(t, s, "bob")
	pos := s.GetSnapshot().Frontier[0]

	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: pos})
	s.Step(0)

	snap := s.GetSnapshot()
	assert.Equal(t, PhaseDefend, snap.Phase)
	assert.Equal(t, 1, snap.Wave)
	assert.Equal(t, config.WaveTarget, snap.BatchesLeft)
	_, ok := snap.Node(pos)
	assert.True(t, ok)

	want := []ClientEvent{{Type: EventExpanded, Pos: pos, Wave: 1}}
	assert.Empty(t, cmp.Diff(want, drain(a)))
	assert.Empty(t, cmp.Diff(want, drain(b)))

	// A second expansion in the same wave is refused and only the sender hears.
	s.SendCommand(Command{ClientID: b.ID, Type: CmdExpand, Pos: snap.Frontier[0]})
	s.Step(0)
	assert.Empty(t, drain(a))
	rejected := drain(b)
	require.Len(t, rejected, 1)
	assert.Equal(t, EventExpandRejected, rejected[0].Type)
	assert.Equal(t, "wait for the wave to end", rejected[0].Reason)
}

func TestExpandOutsideFrontierIsRejected(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")

	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: grid.Pos(0, 0)})
	s.Step(0)

	evs := drain(a)
	require.Len(t, evs, 1)
	assert.Equal(t, EventExpandRejected, evs[0].Type)
	assert.Equal(t, "that cell cannot grow", evs[0].Reason)
	assert.Equal(t, PhaseExpand, s.GetSnapshot().Phase)
}

func TestCommandsFromUnknownClientsAreIgnored(t *testing.T) {
	s := newServer(t, nil)
	s.SendCommand(Command{ClientID: 99, Type: CmdExpand, Pos: s.GetSnapshot().Frontier[0]})
	s.Step(0)
	assert.Equal(t, PhaseExpand, s.GetSnapshot().Phase)
}

func TestStrikeScoresKillsWithCooldown(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")
	b := join(t, s, "bob")
	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: s.GetSnapshot().Frontier[0]})
	s.Step(0)
	drain(a)
	drain(b)

	cell := grid.Pos(5, 5)
	_, err := s.World().Roster.Spawn(graph.Path{cell, grid.Pos(4, 5), grid.Pos(3, 5)}, config.StrikeDamage*2, wave.Normal, 1)
	require.NoError(t, err)

	strike := Command{ClientID: b.ID, Type: CmdStrike, Pos: cell}
	s.SendCommand(strike)
	s.SendCommand(strike) // Inside the cooldown
	s.Step(0)
	assert.Len(t, s.GetSnapshot().AgentsAt(cell), 1)
	assert.Empty(t, drain(b))

	s.SendCommand(strike)
	s.Step(config.StrikeCooldown)
	assert.Empty(t, s.GetSnapshot().AgentsAt(cell))

	points := int(config.StrikeDamage) * config.ScorePerStrength
	assert.Equal(t, []ClientEvent{{Type: EventScoreAdd, ScoreAdd: points, Pos: cell}}, drain(b))
	assert.Empty(t, drain(a))
	assert.Equal(t, points, b.Score)
	assert.Equal(t, []TopScoreEntry{
		{Username: "bob", Score: points, clientID: b.ID},
		{Username: "alice", Score: 0, clientID: a.ID},
	}, s.GetSnapshot().TopScores)
}

func TestRejectedStrikeKeepsStrikeReady(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")
	cell := grid.Pos(5, 5)

	// No wave is running yet.
	s.SendCommand(Command{ClientID: a.ID, Type: CmdStrike, Pos: cell})
	s.Step(0)

	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: s.GetSnapshot().Frontier[0]})
	s.Step(0)
	drain(a)
	_, err := s.World().Roster.Spawn(graph.Path{cell, grid.Pos(4, 5)}, 2.6, wave.Normal, 1)
	require.NoError(t, err)

	s.SendCommand(Command{ClientID: a.ID, Type: CmdStrike, Pos: cell})
	s.Step(0)

	assert.Empty(t, s.GetSnapshot().AgentsAt(cell))
	assert.Equal(t, []ClientEvent{{Type: EventScoreAdd, ScoreAdd: 3, Pos: cell}}, drain(a))
	assert.Equal(t, 3, a.Score)
}

func TestWaveEventsReachClients(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")
	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: s.GetSnapshot().Frontier[0]})
	s.Step(0)

	var evs []ClientEvent
	for range 2000 {
		s.Step(50 * time.Millisecond)
		evs = append(evs, drain(a)...)
		if s.GetSnapshot().Phase != PhaseDefend {
			break
		}
	}

	types := eventTypes(evs)
	require.NotEmpty(t, types)
	assert.Equal(t, EventExpanded, types[0])
	assert.Equal(t, EventWaveCleared, types[len(types)-1])
	assert.Contains(t, types, EventBaseHit)
	assert.NotContains(t, types, EventGameLost)
}

func TestLostAndRestart(t *testing.T) {
	s, err := NewServer(Options{Seed: 42, BaseHealth: 5})
	require.NoError(t, err)
	a := join(t, s, "alice")
	a.Score = 12
	s.SendCommand(Command{ClientID: a.ID, Type: CmdExpand, Pos: s.GetSnapshot().Frontier[0]})

	for range 2000 {
		s.Step(50 * time.Millisecond)
		if s.GetSnapshot().Phase == PhaseLost {
			break
		}
	}
	require.Equal(t, PhaseLost, s.GetSnapshot().Phase)
	types := eventTypes(drain(a))
	assert.Equal(t, EventGameLost, types[len(types)-1])

	s.SendCommand(Command{ClientID: a.ID, Type: CmdRestart})
	s.Step(0)

	snap := s.GetSnapshot()
	assert.Equal(t, PhaseExpand, snap.Phase)
	assert.InDelta(t, 5.0, snap.BaseHealth, 1e-9)
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, []ClientEvent{{Type: EventRestarted}}, drain(a))
}

func TestShutdownNotifiesClients(t *testing.T) {
	s := newServer(t, nil)
	a := join(t, s, "alice")

	go func() {
		for ev := range a.EventsCh {
			if ev.Type == EventServerShutdown {
				s.UnregisterClient(a.ID)
				s.Step(0)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		s.Shutdown(5 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown waited for the full timeout")
	}
}

func TestTopScoresKeepsBestFive(t *testing.T) {
	clients := map[int]*ClientHandle{}
	for i, score := range []int{3, 9, 1, 9, 4, 7, 0} {
		clients[i+1] = &ClientHandle{ID: i + 1, Username: string(rune('a' + i)), Score: score}
	}
	got := topScores(clients)
	want := []TopScoreEntry{
		{Username: "b", Score: 9},
		{Username: "d", Score: 9},
		{Username: "f", Score: 7},
		{Username: "e", Score: 4},
		{Username: "a", Score: 3},
	}
	assert.Empty(t, cmp.Diff(want, got, cmpopts.IgnoreUnexported(TopScoreEntry{})))
}
