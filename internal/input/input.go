// Package input turns raw terminal bytes into game keys.
package input

import (
	"bufio"
	"slices"

	"github.com/tomz197/outgrowth/internal/grid"
)

// Key is a game action bound to one or more terminal keys.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyExpand  // Enter
	KeyStrike  // Space
	KeyRestart // r
	KeyQuit    // q
	KeyEscape
)

// Input is everything pressed since the previous frame.
type Input struct {
	Keys    []Key  // Parsed keys in the order they were pressed
	Pressed []byte // Raw bytes
}

// Has reports whether k was pressed this frame.
func (in Input) Has(k Key) bool {
	return slices.Contains(in.Keys, k)
}

// Moves returns the cursor moves pressed this frame, in order.
func (in Input) Moves() []grid.Direction {
	var out []grid.Direction
	for _, k := range in.Keys {
		if d, ok := Direction(k); ok {
			out = append(out, d)
		}
	}
	return out
}

// Direction maps a cursor key to a grid direction, north up.
func Direction(k Key) (grid.Direction, bool) {
	switch k {
	case KeyUp:
		return grid.North, true
	case KeyRight:
		return grid.East, true
	case KeyDown:
		return grid.South, true
	case KeyLeft:
		return grid.West, true
	default:
		return 0, false
	}
}

// Stream delivers input bytes via a channel.
type Stream struct {
	ch chan byte
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// ReadInput drains all available bytes from the stream (non-blocking). closed
// is true once the reader has failed, e.g. the session went away.
func ReadInput(s *Stream) (in Input, closed bool) {
	var buf []byte
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				return Input{Keys: Parse(buf), Pressed: buf}, true
			}
			buf = append(buf, b)
		default:
			return Input{Keys: Parse(buf), Pressed: buf}, false
		}
	}
}

// Parse converts raw bytes to keys. Arrow keys arrive as CSI sequences
// (ESC [ A..D); a lone ESC is KeyEscape.
func Parse(buf []byte) []Key {
	var keys []Key
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			if k := arrow(buf[i+2]); k != KeyNone {
				keys = append(keys, k)
				i += 2
				continue
			}
		}
		if k := keyOf(b); k != KeyNone {
			keys = append(keys, k)
		}
	}
	return keys
}

func arrow(b byte) Key {
	switch b {
	case 'A':
		return KeyUp
	case 'B':
		return KeyDown
	case 'C':
		return KeyRight
	case 'D':
		return KeyLeft
	default:
		return KeyNone
	}
}

func keyOf(b byte) Key {
	switch b {
	case 'q', 'Q', '\x03':
		return KeyQuit
	case 'a', 'A', 'h', 'H':
		return KeyLeft
	case 'd', 'D', 'l', 'L':
		return KeyRight
	case 'w', 'W', 'k', 'K':
		return KeyUp
	case 's', 'S', 'j', 'J':
		return KeyDown
	case ' ':
		return KeyStrike
	case '\n', '\r', 'e', 'E':
		return KeyExpand
	case 'r', 'R':
		return KeyRestart
	case '\x1b':
		return KeyEscape
	default:
		return KeyNone
	}
}
