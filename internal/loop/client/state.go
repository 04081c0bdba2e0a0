package client

import (
	"time"

	"github.com/tomz197/outgrowth/internal/draw"
	"github.com/tomz197/outgrowth/internal/grid"
	"github.com/tomz197/outgrowth/internal/input"
)

// GameState represents the current screen of a client.
type GameState int

const (
	GameStateStart    GameState = iota // Title screen
	GameStatePlaying                   // Board view
	GameStateShutdown                  // Server is shutting down
)

// ClientState holds per-player state (input, cursor, score, etc.).
// Each client has their own instance, managed by the Client.
type ClientState struct {
	Input        input.Input
	GameState    GameState     // This client's screen
	Cursor       grid.Position // Selected board cell
	Score        int           // This client's score
	Message      string        // Status line shown under the HUD
	messageTimer float64       // Seconds left for Message

	termSizeFunc  draw.TermSizeFunc // Function to get terminal size
	Running       bool              // Client loop running
	delta         time.Duration     // Frame delta time (client-side)
	shutdownTimer float64           // Countdown before auto-disconnect on shutdown
	isInactive    bool              // Whether the client is in inactive warning state
	prevGameState GameState         // Screen drawn last frame
	wasInactive   bool              // Inactivity state drawn last frame
}

// NewClientState creates a new initialized client state.
func NewClientState() *ClientState {
	return &ClientState{
		GameState: GameStateStart,
		Running:   true,
	}
}

// say shows msg in the status line for a few seconds.
func (s *ClientState) say(msg string, seconds float64) {
	s.Message = msg
	s.messageTimer = seconds
}

// tick ages the status message.
func (s *ClientState) tick() {
	if s.messageTimer <= 0 {
		return
	}
	s.messageTimer -= s.delta.Seconds()
	if s.messageTimer <= 0 {
		s.Message = ""
		s.messageTimer = 0
	}
}
