package input

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tomz197/outgrowth/internal/grid"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Key
	}{
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []Key{KeyUp, KeyDown, KeyRight, KeyLeft}},
		{"wasd", "wasd", []Key{KeyUp, KeyLeft, KeyDown, KeyRight}},
		{"actions", "\r \x1bq", []Key{KeyExpand, KeyStrike, KeyEscape, KeyQuit}},
		{"restart", "R", []Key{KeyRestart}},
		{"truncated escape", "\x1b[", []Key{KeyEscape}},
		{"unknown", "zx9", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse([]byte(tc.in)))
		})
	}
}

func TestMovesKeepOrder(t *testing.T) {
	in := Input{Keys: Parse([]byte("d\x1b[A x"))}
	assert.Equal(t, []grid.Direction{grid.East, grid.North}, in.Moves())
	assert.True(t, in.Has(KeyStrike))
	assert.False(t, in.Has(KeyQuit))
}

func TestReadInputReportsClosedStream(t *testing.T) {
	s := StartStream(bufio.NewReader(strings.NewReader("q")))

	var keys []Key
	assert.Eventually(t, func() bool {
		in, closed := ReadInput(s)
		keys = append(keys, in.Keys...)
		return closed
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Key{KeyQuit}, keys)
}
