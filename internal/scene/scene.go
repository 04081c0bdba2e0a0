// Package scene places grid nodes and agents in world space and maps them to
// terminal cells.
package scene

import (
	"math"
	"time"

	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/physics"
	"github.com/tomz197/outgrowth/internal/wave"
)

// Origin returns the world-space origin of the node at pos.
func Origin(pos grid.Position, spacing float64) physics.Point {
	return physics.Point{
		X: float64(pos.X) * spacing * 2,
		Y: float64(pos.Y) * spacing * 2,
	}
}

// AgentPoint returns where a is drawn: between its current and next node,
// according to how much of the step time has elapsed.
func AgentPoint(a *wave.Agent, spacing float64, stepTime time.Duration) physics.Point {
	from := Origin(a.Cell(), spacing)
	next, ok := a.Next()
	if !ok {
		return from
	}
	return physics.Lerp(from, Origin(next, spacing), a.Fraction(stepTime))
}

// Viewport maps grid positions to 1-based terminal cells, north up. Each
// grid cell covers CellCols x CellRows terminal cells; Center is drawn in
// the middle of the viewport.
type Viewport struct {
	Cols, Rows         int // Terminal area size
	OffsetCol          int // Terminal column of the area's left edge, minus 1
	OffsetRow          int // Terminal row of the area's top edge, minus 1
	CellCols, CellRows int
	Center             grid.Position
	Spacing            float64
}

// Cell returns the top-left terminal cell of pos. ok is false when the whole
// block lies outside the viewport.
func (v Viewport) Cell(pos grid.Position) (col, row int, ok bool) {
	col, row = v.cellOf(float64(pos.X), float64(pos.Y))
	return col, row, v.visible(col, row, v.CellCols, v.CellRows)
}

// Point returns the terminal cell of a world-space point.
func (v Viewport) Point(p physics.Point) (col, row int, ok bool) {
	unit := v.Spacing * 2
	if unit <= 0 {
		unit = 1
	}
	col, row = v.cellOf(p.X/unit, p.Y/unit)
	return col, row, v.visible(col, row, 1, 1)
}

// Fits reports whether a board spanning r is fully visible.
func (v Viewport) Fits(r grid.Rect) bool {
	_, _, a := v.Cell(r.Min)
	_, _, b := v.Cell(r.Max)
	return a && b && r.Width()*v.CellCols <= v.Cols && r.Height()*v.CellRows <= v.Rows
}

func (v Viewport) cellOf(gx, gy float64) (col, row int) {
	col = v.OffsetCol + 1 + v.Cols/2 - v.CellCols/2 + int(math.Round((gx-float64(v.Center.X))*float64(v.CellCols)))
	row = v.OffsetRow + 1 + v.Rows/2 - v.CellRows/2 + int(math.Round((float64(v.Center.Y)-gy)*float64(v.CellRows)))
	return col, row
}

func (v Viewport) visible(col, row, w, h int) bool {
	return col >= v.OffsetCol+1 && row >= v.OffsetRow+1 &&
		col+w-1 <= v.OffsetCol+v.Cols && row+h-1 <= v.OffsetRow+v.Rows
}
