package draw

import "strconv"

// Color is an ANSI foreground color code. Zero is the terminal default.
type Color uint8

const (
	ColorDefault Color = 0
	ColorRed     Color = 31
	ColorGreen   Color = 32
	ColorYellow  Color = 33
	ColorBlue    Color = 34
	ColorMagenta Color = 35
	ColorCyan    Color = 36
	ColorGray    Color = 90

	ColorBrightRed     Color = 91
	ColorBrightGreen   Color = 92
	ColorBrightYellow  Color = 93
	ColorBrightMagenta Color = 95
	ColorBrightCyan    Color = 96
	ColorWhite         Color = 97
)

// Style is how a cell is drawn.
type Style struct {
	FG      Color
	Bold    bool
	Reverse bool
}

// Block characters for drawing.
const (
	BlockFull   = '█'
	BlockLight  = '░'
	BlockMedium = '▒'
	BlockDark   = '▓'
	BlockEmpty  = ' '
)

// Cell is one terminal character.
type Cell struct {
	Ch    rune
	Style Style
}

var blank = Cell{Ch: ' '}

// Canvas is a character buffer the size of the render area. Render writes
// only the cells that differ from the previous frame.
type Canvas struct {
	cols, rows int
	cells      []Cell // [row*cols + col], 0-based
	prev       []Cell
	redraw     bool
}

// NewCanvas creates a blank canvas.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{}
	c.Resize(cols, rows)
	return c
}

// Resize changes the canvas size. Any size change forces a full redraw.
func (c *Canvas) Resize(cols, rows int) {
	cols, rows = max(cols, 0), max(rows, 0)
	if cols == c.cols && rows == c.rows && c.cells != nil {
		return
	}
	c.cols, c.rows = cols, rows
	c.cells = make([]Cell, cols*rows)
	c.prev = make([]Cell, cols*rows)
	c.Clear()
	c.redraw = true
}

// Cols returns the canvas width.
func (c *Canvas) Cols() int {
	return c.cols
}

// Rows returns the canvas height.
func (c *Canvas) Rows() int {
	return c.rows
}

// Clear blanks every cell of the next frame.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = blank
	}
}

// ForceRedraw makes the next Render write every cell.
func (c *Canvas) ForceRedraw() {
	c.redraw = true
}

// Set puts ch at the 1-based position. Out-of-range positions are ignored.
func (c *Canvas) Set(col, row int, ch rune, style Style) {
	if col < 1 || row < 1 || col > c.cols || row > c.rows {
		return
	}
	c.cells[(row-1)*c.cols+col-1] = Cell{Ch: ch, Style: style}
}

// Text writes s starting at the 1-based position, clipped to the canvas.
func (c *Canvas) Text(col, row int, s string, style Style) {
	for _, r := range s {
		c.Set(col, row, r, style)
		col++
	}
}

// TextCentered writes s centered on row.
func (c *Canvas) TextCentered(row int, s string, style Style) {
	c.Text(c.cols/2-len([]rune(s))/2+1, row, s, style)
}

// At returns the cell at the 1-based position of the next frame.
func (c *Canvas) At(col, row int) Cell {
	if col < 1 || row < 1 || col > c.cols || row > c.rows {
		return blank
	}
	return c.cells[(row-1)*c.cols+col-1]
}

// Render writes changed cells to cw and remembers the frame.
func (c *Canvas) Render(cw *ChunkWriter) {
	current := Style{}
	styled := false
	lastCol, lastRow := -1, -1
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			i := row*c.cols + col
			cell := c.cells[i]
			if !c.redraw && cell == c.prev[i] {
				continue
			}
			if row != lastRow || col != lastCol+1 {
				cw.MoveCursor(col+1, row+1)
			}
			if !styled || cell.Style != current {
				cw.WriteString(sgr(cell.Style))
				current, styled = cell.Style, true
			}
			cw.WriteRune(cell.Ch)
			lastCol, lastRow = col, row
		}
	}
	if styled {
		cw.WriteString(sgr(Style{}))
	}
	copy(c.prev, c.cells)
	c.redraw = false
}

// sgr returns the escape sequence selecting style.
func sgr(s Style) string {
	out := "\033[0"
	if s.Bold {
		out += ";1"
	}
	if s.Reverse {
		out += ";7"
	}
	if s.FG != ColorDefault {
		out += ";" + strconv.Itoa(int(s.FG))
	}
	return out + "m"
}
