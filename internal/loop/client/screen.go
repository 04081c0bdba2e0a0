package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomz197/outgrowth/internal/draw"
	"github.com/tomz197/outgrowth/internal/graph"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/loop/server"
	"github.com/tomz197/outgrowth/internal/scene"
	"github.com/tomz197/outgrowth/internal/wave"
)

var (
	styleHUD      = draw.Style{FG: draw.ColorWhite, Bold: true}
	styleDim      = draw.Style{FG: draw.ColorGray}
	styleRoot     = draw.Style{FG: draw.ColorBrightYellow, Bold: true}
	styleNode     = draw.Style{FG: draw.ColorGreen}
	stylePassage  = draw.Style{FG: draw.ColorBrightGreen}
	styleFrontier = draw.Style{FG: draw.ColorCyan}
	styleMessage  = draw.Style{FG: draw.ColorYellow}
	styleWarning  = draw.Style{FG: draw.ColorBrightRed, Bold: true}
)

var tierStyles = map[wave.Tier]draw.Style{
	wave.Normal:      {FG: draw.ColorRed, Bold: true},
	wave.Elevated:    {FG: draw.ColorBrightMagenta, Bold: true},
	wave.MaxElevated: {FG: draw.ColorBrightRed, Bold: true, Reverse: true},
}

var tierGlyphs = map[wave.Tier]rune{
	wave.Normal:      'o',
	wave.Elevated:    'O',
	wave.MaxElevated: '@',
}

// drawFrame draws the current frame.
func (c *Client) drawFrame(snapshot *server.WorldSnapshot) error {
	// On screen or inactivity transitions, do a full terminal clear
	// so UI elements from the previous state don't persist on screen.
	stateChanged := c.state.GameState != c.state.prevGameState
	inactiveChanged := c.state.isInactive != c.state.wasInactive
	if stateChanged || inactiveChanged {
		c.chunkWriter.Clear()
		c.canvas.ForceRedraw()
		c.state.prevGameState = c.state.GameState
		c.state.wasInactive = c.state.isInactive
	}

	c.canvas.Clear()

	switch {
	case c.state.GameState == GameStateShutdown:
		c.drawShutdownScreen()
	case c.state.isInactive:
		c.drawInactivityScreen()
	case c.state.GameState == GameStateStart:
		c.drawStartScreen()
	default:
		c.drawBoard(snapshot)
		c.drawHUD(snapshot)
	}

	c.canvas.Render(c.chunkWriter)
	return c.chunkWriter.Flush()
}

// viewport returns the board area below the HUD, centered on the base.
func (c *Client) viewport(snapshot *server.WorldSnapshot) scene.Viewport {
	return scene.Viewport{
		Cols:      c.canvas.Cols(),
		Rows:      max(c.canvas.Rows()-config.HUDRows, 0),
		OffsetRow: config.HUDRows,
		CellCols:  config.CellCols,
		CellRows:  config.CellRows,
		Center:    snapshot.Root(),
		Spacing:   config.CellSpacing,
	}
}

// drawBoard draws every cell of the board, the tree's edges and the agents.
// A cell's block holds its body in the top row and the edge slots toward
// its east and south neighbors in the last column and row.
func (c *Client) drawBoard(snapshot *server.WorldSnapshot) {
	vp := c.viewport(snapshot)
	b := snapshot.Bounds

	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			pos := grid.Pos(x, y)
			col, row, ok := vp.Cell(pos)
			if !ok {
				continue
			}
			c.drawCell(snapshot, pos, col, row)
		}
	}

	for _, a := range snapshot.Agents {
		col, row, ok := vp.Point(a.Point)
		if !ok {
			continue
		}
		c.canvas.Set(col+1, row, tierGlyphs[a.Tier], tierStyles[a.Tier])
	}

	if col, row, ok := vp.Cell(c.state.Cursor); ok {
		for i := range config.CellCols - 1 {
			cell := c.canvas.At(col+i, row)
			cell.Style.Reverse = true
			c.canvas.Set(col+i, row, cell.Ch, cell.Style)
		}
	}
}

func (c *Client) drawCell(snapshot *server.WorldSnapshot, pos grid.Position, col, row int) {
	node, active := snapshot.Node(pos)
	switch {
	case active && node.Root:
		c.canvas.Text(col, row, "[#]", styleRoot)
	case active:
		c.canvas.Text(col, row, "[ ]", styleNode)
	case snapshot.InFrontier(pos):
		c.canvas.Text(col, row, " + ", styleFrontier)
	default:
		c.canvas.Text(col, row, " · ", styleDim)
		return
	}
	if !active {
		return
	}
	for _, d := range grid.Directions {
		slotCol, slotRow, glyph := edgeSlot(d, col, row)
		switch node.Edges[d] {
		case graph.Passage:
			c.canvas.Set(slotCol, slotRow, glyph, stylePassage)
		case graph.Entrance:
			if c.canvas.At(slotCol, slotRow).Ch == ' ' {
				c.canvas.Set(slotCol, slotRow, '.', styleFrontier)
			}
		}
	}
}

// edgeSlot returns where the edge of a cell drawn at (col, row) toward d
// goes, and the glyph of an open passage there.
func edgeSlot(d grid.Direction, col, row int) (int, int, rune) {
	switch d {
	case grid.North:
		return col + 1, row - 1, '│'
	case grid.South:
		return col + 1, row + 1, '│'
	case grid.East:
		return col + config.CellCols - 1, row, '─'
	default:
		return col - 1, row, '─'
	}
}

// drawHUD draws the status rows above the board.
// Text fields use fixed-width formatting so shrinking values don't leave
// residual characters on screen.
func (c *Client) drawHUD(snapshot *server.WorldSnapshot) {
	cols := c.canvas.Cols()

	status := fmt.Sprintf("Wave %-3d %-7s Base %s %3.0f/%-3.0f",
		snapshot.Wave, strings.ToUpper(snapshot.Phase.String()),
		healthBar(snapshot.BaseHealth, snapshot.MaxHealth, 10), snapshot.BaseHealth, snapshot.MaxHealth)
	if snapshot.Phase == server.PhaseDefend {
		status += fmt.Sprintf("  Batches left %d  Agents %-3d", snapshot.BatchesLeft, len(snapshot.Agents))
	}
	c.canvas.Text(2, 1, status, styleHUD)

	right := fmt.Sprintf("Score %-6d Players %-3d", c.state.Score, snapshot.Players)
	c.canvas.Text(cols-len(right), 1, right, styleHUD)

	line := c.state.Message
	style := styleMessage
	if line == "" {
		line, style = c.hint(snapshot.Phase), styleDim
	}
	c.canvas.Text(2, 2, line, style)

	if len(snapshot.TopScores) > 0 {
		top := snapshot.TopScores[0]
		leader := fmt.Sprintf("Top: %s %d", top.Username, top.Score)
		c.canvas.Text(cols-len([]rune(leader)), 2, leader, styleDim)
	}

	if snapshot.Phase == server.PhaseLost {
		c.canvas.TextCentered(c.canvas.Rows()/2, " THE BASE HAS FALLEN ", styleWarning)
		c.canvas.TextCentered(c.canvas.Rows()/2+1, " Press R to grow a new tree ", styleWarning)
	}
}

func (c *Client) hint(phase server.Phase) string {
	switch phase {
	case server.PhaseExpand:
		return "Arrows/WASD: pick a + cell   ENTER: grow   Q: quit"
	case server.PhaseDefend:
		return "Arrows/WASD: move   SPACE: strike agents on the cell   Q: quit"
	default:
		return "R: restart   Q: quit"
	}
}

// healthBar renders health as a bar of width blocks.
func healthBar(health, maxHealth float64, width int) string {
	filled := 0
	if maxHealth > 0 {
		filled = int(health / maxHealth * float64(width))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat(string(draw.BlockFull), filled) + strings.Repeat(string(draw.BlockLight), width-filled)
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen() {
	centerY := c.canvas.Rows() / 2
	c.canvas.TextCentered(centerY-2, "INACTIVITY WARNING", styleWarning)

	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	c.canvas.TextCentered(centerY, msg, styleHUD)
	c.canvas.TextCentered(centerY+2, "Press any key to continue", styleDim)
}

// drawStartScreen draws the title screen.
func (c *Client) drawStartScreen() {
	// ASCII art title (figlet "small" font)
	titleArt := []string{
		`  ___  _   _ _____ ___ ___  _____      _______ _  _ `,
		` / _ \| | | |_   _/ __| _ \/ _ \ \    / /_   _| || |`,
		`| (_) | |_| | | || (_ |   / (_) \ \/\/ /  | | | __ |`,
		` \___/ \___/  |_| \___|_|_\\___/ \_/\_/   |_| |_||_|`,
	}

	titleStartY := c.canvas.Rows()/2 - 7
	for i, line := range titleArt {
		c.canvas.TextCentered(titleStartY+i, line, stylePassage)
	}

	c.canvas.TextCentered(titleStartY+len(titleArt)+1, "~ Grow the tree, defend the root ~", styleHUD)

	controlsY := titleStartY + len(titleArt) + 3
	c.canvas.TextCentered(controlsY, "Controls", styleHUD)
	controlLines := []string{
		"Arrows / WASD . . Move cursor",
		"ENTER . . . . . . . Grow cell",
		"SPACE . . . . . . . . Strike",
		"R . . . . . . . . . Restart",
		"Q . . . . . . . . . . . Quit",
	}
	for i, line := range controlLines {
		c.canvas.TextCentered(controlsY+1+i, line, styleDim)
	}

	// Blinking start prompt
	if time.Now().UnixMilli()/600%2 == 0 {
		c.canvas.TextCentered(controlsY+len(controlLines)+2, ">>  Press SPACE to Start  <<", styleMessage)
	}
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen() {
	centerY := c.canvas.Rows() / 2
	c.canvas.TextCentered(centerY-3, "SERVER SHUTTING DOWN", styleWarning)
	c.canvas.TextCentered(centerY-1, "The server is restarting for maintenance.", styleHUD)
	c.canvas.TextCentered(centerY, "Please reconnect in a moment.", styleHUD)

	remaining := int(c.state.shutdownTimer) + 1
	c.canvas.TextCentered(centerY+2, fmt.Sprintf("Disconnecting in %d seconds...", remaining), styleHUD)
	c.canvas.TextCentered(centerY+4, "Press Q to disconnect now", styleDim)
}
