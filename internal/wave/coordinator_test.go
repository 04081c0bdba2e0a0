package wave

import (
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
)

func seqOf(paths ...graph.Path) iter.Seq[graph.Path] {
	return slices.Values(paths)
}

var twoPaths = []graph.Path{
	{grid.Pos(0, 2), grid.Pos(0, 1), grid.Pos(0, 0)},
	{grid.Pos(1, 0), grid.Pos(0, 0)},
}

func newCoordinator(t *testing.T, source PathSource, target int) (*Coordinator, *Roster) {
	t.Helper()
	r := NewRoster()
	c, err := NewCoordinator(Config{Interval: 5 * time.Second, Target: target, Strength: 10}, source, r)
	require.NoError(t, err)
	return c, r
}

func TestCoordinatorFiresUntilTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(seqOf(twoPaths...), nil).Times(3)

	c, r := newCoordinator(t, source, 3)
	var batches []Batch
	var summaries []Summary
	c.Batches().Subscribe(func(b Batch) { batches = append(batches, b) })
	c.Finished().Subscribe(func(s Summary) { summaries = append(summaries, s) })

	c.Start()
	require.Equal(t, Spawning, c.State())

	total := 0
	for _, step := range []time.Duration{4, 4, 4, 5} {
		agents, err := c.Update(step * time.Second)
		require.NoError(t, err)
		total += len(agents)
	}

	assert.Equal(t, Finished, c.State())
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, 0, c.Remaining())
	assert.Equal(t, 6, total)
	assert.Equal(t, 6, r.Len())
	require.Len(t, batches, 3)
	for i, b := range batches {
		assert.Equal(t, i+1, b.Number)
		assert.Len(t, b.Agents, 2)
	}
	assert.Equal(t, []Summary{{Batches: 3, Agents: 6}}, summaries)

	// Finished coordinators ignore further time.
	agents, err := c.Update(time.Minute)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestCoordinatorStopsAtTargetWithinOneUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(seqOf(twoPaths[0]), nil).Times(3)

	c, _ := newCoordinator(t, source, 3)
	c.Start()

	agents, err := c.Update(17 * time.Second)
	require.NoError(t, err)
	assert.Len(t, agents, 3)
	assert.Equal(t, Finished, c.State())
	assert.Equal(t, 3, c.Count())
}

func TestCoordinatorIntervalIsStrict(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(seqOf(twoPaths[1]), nil).Times(1)

	c, _ := newCoordinator(t, source, 3)
	c.Start()

	agents, err := c.Update(5 * time.Second)
	require.NoError(t, err)
	assert.Empty(t, agents)

	agents, err = c.Update(time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, 2, c.Remaining())
}

func TestCoordinatorSpawnsFreshAgentsAtLeaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(seqOf(twoPaths...), nil)

	c, _ := newCoordinator(t, source, 1)
	c.Start()
	agents, err := c.Update(6 * time.Second)
	require.NoError(t, err)
	require.Len(t, agents, 2)

	for i, a := range agents {
		assert.Equal(t, twoPaths[i], a.Path)
		assert.Equal(t, twoPaths[i].Leaf(), a.Cell())
		assert.Equal(t, 0, a.Progress)
		assert.Equal(t, Normal, a.Tier)
		assert.InDelta(t, 10.0, a.Strength, 1e-9)
		assert.Equal(t, 1, a.Wave)
	}
}

func TestCoordinatorIdleUntilStarted(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)

	c, _ := newCoordinator(t, source, 3)
	agents, err := c.Update(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, agents)
	assert.Equal(t, Idle, c.State())
}

func TestCoordinatorRestartResetsCounter(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(seqOf(twoPaths[0]), nil).AnyTimes()

	c, _ := newCoordinator(t, source, 2)
	c.Start()
	_, err := c.Update(7 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count())

	c.Disable()
	assert.Equal(t, Idle, c.State())
	c.Start()
	assert.Equal(t, 0, c.Count())

	// The 2s left over from before the restart are gone.
	agents, err := c.Update(4 * time.Second)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestCoordinatorPropagatesPathErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := NewMockPathSource(ctrl)
	source.EXPECT().LeafPaths().Return(nil, graph.ErrNotInitialized)

	c, _ := newCoordinator(t, source, 3)
	c.Start()
	_, err := c.Update(6 * time.Second)
	assert.True(t, errors.Is(err, graph.ErrNotInitialized))
}

func TestCoordinatorUsesEngineLeafPaths(t *testing.T) {
	e := graph.NewEngine()
	_, err := e.Initialize()
	require.NoError(t, err)
	_, err = e.Activate(grid.Pos(0, 1))
	require.NoError(t, err)
	_, err = e.Activate(grid.Pos(1, 0))
	require.NoError(t, err)

	c, r := newCoordinator(t, e, 1)
	c.Start()
	agents, err := c.Update(6 * time.Second)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, graph.Path{grid.Pos(0, 1), grid.Pos(0, 0)}, agents[0].Path)
	assert.Equal(t, graph.Path{grid.Pos(1, 0), grid.Pos(0, 0)}, agents[1].Path)
	assert.Equal(t, 2, r.Len())
}

func TestNewCoordinatorValidates(t *testing.T) {
	r := NewRoster()
	src := graph.NewEngine()
	for _, cfg := range []Config{
		{Interval: 0, Target: 1, Strength: 1},
		{Interval: time.Second, Target: 0, Strength: 1},
		{Interval: time.Second, Target: 1, Strength: 0},
	} {
		_, err := NewCoordinator(cfg, src, r)
		assert.Error(t, err)
	}
	_, err := NewCoordinator(Config{Interval: time.Second, Target: 1, Strength: 1}, nil, r)
	assert.Error(t, err)
}
