package client

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/input"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/loop/server"
)

// recordingServer remembers every command on its way to the real server.
type recordingServer struct {
	*server.Server
	commands []server.Command
}

func (r *recordingServer) SendCommand(cmd server.Command) {
	r.commands = append(r.commands, cmd)
	r.Server.SendCommand(cmd)
}

func newClient(t *testing.T) (*Client, *recordingServer, *bytes.Buffer) {
	t.Helper()
	s, err := server.NewServer(server.Options{Seed: 42})
	require.NoError(t, err)
	rec := &recordingServer{Server: s}
	var out bytes.Buffer
	c := NewClient(rec, bufio.NewReader(strings.NewReader("")), &out, ClientOptions{
		Username:     "alice",
		TermSizeFunc: func() (int, int, error) { return 100, 40, nil },
	})
	s.Step(0)
	return c, rec, &out
}

func press(keys ...input.Key) input.Input {
	return input.Input{Keys: keys, Pressed: []byte{0}}
}

func TestStepPicksClosestCellAhead(t *testing.T) {
	cells := []grid.Position{grid.Pos(0, 4), grid.Pos(1, 1), grid.Pos(-2, 1), grid.Pos(0, -1)}
	from := grid.Pos(0, 0)

	assert.Equal(t, grid.Pos(1, 1), step(from, grid.North, cells))
	assert.Equal(t, grid.Pos(0, -1), step(from, grid.South, cells))
	assert.Equal(t, grid.Pos(1, 1), step(from, grid.East, cells))
	assert.Equal(t, grid.Pos(-2, 1), step(from, grid.West, cells))
	assert.Equal(t, from, step(from, grid.South, cells[:3]))
}

func TestSnapKeepsValidCursor(t *testing.T) {
	cells := []grid.Position{grid.Pos(3, 0), grid.Pos(0, 2), grid.Pos(-2, 0)}
	assert.Equal(t, grid.Pos(0, 2), snap(grid.Pos(0, 2), cells))
	assert.Equal(t, grid.Pos(0, 2), snap(grid.Pos(0, 0), cells), "first of the nearest wins")
	assert.Equal(t, grid.Pos(5, 5), snap(grid.Pos(5, 5), nil))
}

func TestTargetsFollowPhase(t *testing.T) {
	snap := &server.WorldSnapshot{
		Phase:    server.PhaseExpand,
		Nodes:    []server.NodeView{{Pos: grid.Pos(0, 0), Root: true}, {Pos: grid.Pos(0, 1)}},
		Frontier: []grid.Position{grid.Pos(1, 0)},
	}
	assert.Equal(t, []grid.Position{grid.Pos(1, 0)}, targets(snap))

	snap.Phase = server.PhaseDefend
	assert.Equal(t, []grid.Position{grid.Pos(0, 0), grid.Pos(0, 1)}, targets(snap))
}

func TestStartScreenWaitsForKey(t *testing.T) {
	c, _, _ := newClient(t)
	c.updateStartState()
	assert.Equal(t, GameStateStart, c.state.GameState)

	c.state.Input = press(input.KeyStrike)
	c.updateStartState()
	assert.Equal(t, GameStatePlaying, c.state.GameState)
}

func TestExpandKeySendsCursorCell(t *testing.T) {
	c, rec, _ := newClient(t)
	c.state.GameState = GameStatePlaying
	snapshot := rec.GetSnapshot()
	want := snap(grid.Pos(0, 0), snapshot.Frontier)

	c.state.Input = press(input.KeyExpand)
	c.updatePlayingState(snapshot)

	assert.Equal(t, want, c.state.Cursor)
	assert.Equal(t, []server.Command{{ClientID: c.handle.ID, Type: server.CmdExpand, Pos: want}}, rec.commands)

	rec.Step(0)
	assert.Equal(t, server.PhaseDefend, rec.GetSnapshot().Phase)
}

func TestKeysOutsideTheirPhaseSendNothing(t *testing.T) {
	c, rec, _ := newClient(t)
	c.state.GameState = GameStatePlaying
	c.state.Input = press(input.KeyStrike, input.KeyRestart)
	c.updatePlayingState(rec.GetSnapshot())
	assert.Empty(t, rec.commands)
}

func TestCursorMovesOverFrontier(t *testing.T) {
	c, rec, _ := newClient(t)
	c.state.GameState = GameStatePlaying
	snapshot := rec.GetSnapshot()

	c.state.Input = press(input.KeyRight)
	c.updatePlayingState(snapshot)
	assert.True(t, snapshot.InFrontier(c.state.Cursor))
}

func TestServerEventsUpdateState(t *testing.T) {
	c, _, _ := newClient(t)

	c.handleEvent(server.ClientEvent{Type: server.EventScoreAdd, ScoreAdd: 7})
	c.handleEvent(server.ClientEvent{Type: server.EventScoreAdd, ScoreAdd: 3})
	assert.Equal(t, 10, c.state.Score)

	c.handleEvent(server.ClientEvent{Type: server.EventExpandRejected, Reason: "nope"})
	assert.Equal(t, "Cannot expand: nope", c.state.Message)

	c.handleEvent(server.ClientEvent{Type: server.EventRestarted})
	assert.Equal(t, 0, c.state.Score)

	c.handleEvent(server.ClientEvent{Type: server.EventServerShutdown})
	assert.Equal(t, GameStateShutdown, c.state.GameState)
	assert.InDelta(t, config.ShutdownDisplaySeconds, c.state.shutdownTimer, 1e-9)
}

func TestMessagesExpire(t *testing.T) {
	s := NewClientState()
	s.say("hello", 1)
	s.delta = 600 * time.Millisecond
	s.tick()
	assert.Equal(t, "hello", s.Message)
	s.tick()
	assert.Empty(t, s.Message)
}

func TestDrawBoardShowsRootAndFrontier(t *testing.T) {
	c, rec, out := newClient(t)
	c.state.GameState = GameStatePlaying
	snapshot := rec.GetSnapshot()

	require.NoError(t, c.drawFrame(snapshot))
	assert.NotZero(t, out.Len())

	vp := c.viewport(snapshot)
	col, row, ok := vp.Cell(grid.Pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, '#', c.canvas.At(col+1, row).Ch)

	for _, pos := range snapshot.Frontier {
		col, row, ok := vp.Cell(pos)
		require.True(t, ok)
		assert.Equal(t, '+', c.canvas.At(col+1, row).Ch)
	}
	assert.Contains(t, out.String(), "Wave")
}

func TestHealthBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", healthBar(50, 100, 10))
	assert.Equal(t, "░░░░░░░░░░", healthBar(-5, 100, 10))
	assert.Equal(t, "██████████", healthBar(100, 100, 10))
}
