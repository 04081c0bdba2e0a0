// Package draw renders character frames to ANSI terminals.
package draw

import (
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"golang.org/x/term"
)

// maxChunkSize is the largest single write. It stays below a typical MTU so
// frames flow smoothly over SSH.
const maxChunkSize = 1400

const (
	seqClear      = "\033[H\033[2J"
	seqHideCursor = "\033[?25l"
	seqShowCursor = "\033[?25h"
)

// ChunkWriter collects one frame of terminal output and writes it in
// MTU-sized pieces on Flush. Cursor positions are 1-based canvas
// coordinates shifted by the writer's offset.
type ChunkWriter struct {
	w      io.Writer
	buf    []byte
	offCol int
	offRow int
}

// NewChunkWriter returns a ChunkWriter for w. offsetCol and offsetRow are
// added to every cursor move.
func NewChunkWriter(w io.Writer, offsetCol, offsetRow int) *ChunkWriter {
	return &ChunkWriter{w: w, buf: make([]byte, 0, 8192), offCol: offsetCol, offRow: offsetRow}
}

// MoveCursor appends a cursor position sequence.
func (cw *ChunkWriter) MoveCursor(col, row int) {
	cw.buf = append(cw.buf, "\033["...)
	cw.buf = strconv.AppendInt(cw.buf, int64(row+cw.offRow), 10)
	cw.buf = append(cw.buf, ';')
	cw.buf = strconv.AppendInt(cw.buf, int64(col+cw.offCol), 10)
	cw.buf = append(cw.buf, 'H')
}

// WriteString appends s.
func (cw *ChunkWriter) WriteString(s string) {
	cw.buf = append(cw.buf, s...)
}

// WriteRune appends r.
func (cw *ChunkWriter) WriteRune(r rune) {
	cw.buf = utf8.AppendRune(cw.buf, r)
}

// WriteAt moves the cursor and appends s.
func (cw *ChunkWriter) WriteAt(col, row int, s string) {
	cw.MoveCursor(col, row)
	cw.WriteString(s)
}

// Clear appends a full-screen clear.
func (cw *ChunkWriter) Clear() {
	cw.WriteString(seqClear)
}

// Len returns the number of pending bytes.
func (cw *ChunkWriter) Len() int {
	return len(cw.buf)
}

// Flush writes the pending frame. Chunks end on rune boundaries so no
// multi-byte glyph is split across writes.
func (cw *ChunkWriter) Flush() error {
	data := cw.buf
	cw.buf = cw.buf[:0]
	for len(data) > 0 {
		n := min(len(data), maxChunkSize)
		for n < len(data) && n > 0 && !utf8.RuneStart(data[n]) {
			n--
		}
		if _, err := cw.w.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// TermSizeFunc is a function that returns the terminal dimensions.
type TermSizeFunc func() (width, height int, err error)

// DefaultTermSizeFunc reads the size of os.Stdout.
var DefaultTermSizeFunc TermSizeFunc = func() (int, int, error) {
	return term.GetSize(int(os.Stdout.Fd()))
}

// TerminalSize calls sizeFunc, or DefaultTermSizeFunc when it is nil.
func TerminalSize(sizeFunc TermSizeFunc) (width, height int, err error) {
	if sizeFunc == nil {
		sizeFunc = DefaultTermSizeFunc
	}
	return sizeFunc()
}

// ClearScreen clears the terminal and homes the cursor.
func ClearScreen(w io.Writer) {
	_, _ = io.WriteString(w, seqClear)
}

// HideCursor hides the terminal cursor.
func HideCursor(w io.Writer) {
	_, _ = io.WriteString(w, seqHideCursor)
}

// ShowCursor shows the terminal cursor.
func ShowCursor(w io.Writer) {
	_, _ = io.WriteString(w, seqShowCursor)
}
