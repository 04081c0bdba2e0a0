package scene

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/physics"
	"github.com/tomz197/outgrowth/internal/wave"
)

func TestOriginScalesBySpacing(t *testing.T) {
	assert.Equal(t, physics.Point{X: 0, Y: 0}, Origin(grid.Pos(0, 0), 1.5))
	assert.Equal(t, physics.Point{X: 6, Y: -3}, Origin(grid.Pos(2, -1), 1.5))
}

func TestAgentPointInterpolates(t *testing.T) {
	r := wave.NewRoster()
	a, err := r.Spawn(graph.Path{grid.Pos(1, 0), grid.Pos(0, 0)}, 1, wave.Normal, 1)
	require.NoError(t, err)

	step := time.Second
	assert.Equal(t, physics.Point{X: 2, Y: 0}, AgentPoint(a, 1, step))

	r.Advance(250*time.Millisecond, step)
	assert.Equal(t, physics.Point{X: 1.5, Y: 0}, AgentPoint(a, 1, step))
}

func testViewport() Viewport {
	return Viewport{Cols: 40, Rows: 20, CellCols: 4, CellRows: 2, Spacing: 1}
}

func TestViewportCenterAndNorthUp(t *testing.T) {
	v := testViewport()

	col, row, ok := v.Cell(grid.Pos(0, 0))
	require.True(t, ok)
	assert.Equal(t, 19, col)
	assert.Equal(t, 10, row)

	col, row, _ = v.Cell(grid.Pos(1, 1))
	assert.Equal(t, 23, col)
	assert.Equal(t, 8, row)

	_, _, ok = v.Cell(grid.Pos(10, 0))
	assert.False(t, ok)
}

func TestViewportPointMatchesCell(t *testing.T) {
	v := testViewport()
	v.OffsetCol, v.OffsetRow = 5, 2

	for _, pos := range []grid.Position{grid.Pos(0, 0), grid.Pos(-2, 3), grid.Pos(3, -1)} {
		cc, cr, _ := v.Cell(pos)
		pc, pr, ok := v.Point(Origin(pos, v.Spacing))
		require.True(t, ok)
		assert.Equal(t, cc, pc)
		assert.Equal(t, cr, pr)
	}
}

func TestViewportFits(t *testing.T) {
	v := testViewport()
	assert.True(t, v.Fits(grid.RectAround(grid.Pos(0, 0), 3, 3)))
	assert.False(t, v.Fits(grid.RectAround(grid.Pos(0, 0), 6, 3)))
}
