package client

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/tomz197/outgrowth/internal/draw"
	"github.com/tomz197/outgrowth/internal/input"
	"github.com/tomz197/outgrowth/internal/loop/config"
	"github.com/tomz197/outgrowth/internal/loop/server"
)

// Client is one player's view of the shared world: it turns keys into
// commands and draws snapshots.
type Client struct {
	server       server.GameServer
	handle       *server.ClientHandle
	state        *ClientState
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates frame output for chunked writes
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	termSizeFunc draw.TermSizeFunc
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
}

// NewClient registers a player on gs and prepares its terminal state.
func NewClient(gs server.GameServer, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}

	handle := gs.RegisterClient(opts.Username)
	state := NewClientState()
	state.termSizeFunc = termSizeFunc

	cols, rows, _ := draw.TerminalSize(termSizeFunc)
	return &Client{
		server:       gs,
		handle:       handle,
		state:        state,
		canvas:       draw.NewCanvas(cols, rows),
		chunkWriter:  draw.NewChunkWriter(w, 0, 0),
		writer:       w,
		lastInput:    time.Now(),
		inputStream:  input.StartStream(r),
		termSizeFunc: termSizeFunc,
	}
}

// Run draws frames until the player quits, idles out or the server goes
// away.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		if err := c.frame(); err != nil {
			c.server.UnregisterClient(c.handle.ID)
			return err
		}

		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	c.server.UnregisterClient(c.handle.ID)

	draw.ClearScreen(c.writer)
	return nil
}

// frame runs one client frame: input, server events, state and drawing.
func (c *Client) frame() error {
	c.processInput()
	c.processServerEvents()
	c.updateScreen()
	c.state.tick()

	snapshot := c.server.GetSnapshot()
	switch c.state.GameState {
	case GameStateStart:
		c.updateStartState()
	case GameStatePlaying:
		c.updatePlayingState(snapshot)
	case GameStateShutdown:
		c.updateShutdownState()
	}

	return c.drawFrame(snapshot)
}

// processInput reads pending keys and tracks inactivity.
func (c *Client) processInput() {
	in, closed := input.ReadInput(c.inputStream)
	c.state.Input = in
	if closed {
		c.state.Running = false
	}

	if len(in.Pressed) > 0 {
		c.lastInput = time.Now()
		c.state.isInactive = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityDisconnectUser {
		c.state.Running = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityWarnUser {
		c.state.isInactive = true
	}

	if in.Has(input.KeyQuit) {
		c.state.Running = false
	}
}

// processServerEvents drains the client's event channel.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				c.state.Running = false
				return
			}
			c.handleEvent(event)
		default:
			return
		}
	}
}

func (c *Client) handleEvent(event server.ClientEvent) {
	switch event.Type {
	case server.EventExpandRejected:
		c.state.say("Cannot expand: "+event.Reason, config.MessageSeconds)
	case server.EventExpanded:
		c.state.say(fmt.Sprintf("Tree grew at %s. Wave %d incoming!", event.Pos, event.Wave), config.MessageSeconds)
	case server.EventScoreAdd:
		c.state.Score += event.ScoreAdd
		c.state.say(fmt.Sprintf("+%d", event.ScoreAdd), config.MessageSeconds/2)
	case server.EventBaseHit:
		c.state.say(fmt.Sprintf("Base hit for %.0f!", event.Damage), config.MessageSeconds/2)
	case server.EventWaveCleared:
		c.state.say(fmt.Sprintf("Wave %d survived. Pick a cell to grow.", event.Wave), config.MessageSeconds)
	case server.EventGameLost:
		c.state.say(fmt.Sprintf("The base fell in wave %d.", event.Wave), config.MessageSeconds)
	case server.EventRestarted:
		c.state.Score = 0
		c.state.say("New map generated.", config.MessageSeconds)
	case server.EventServerShutdown:
		c.state.GameState = GameStateShutdown
		c.state.shutdownTimer = config.ShutdownDisplaySeconds
	}
}

// updateScreen handles terminal resize. On size changes it clears the
// terminal so nothing from the old layout stays behind.
func (c *Client) updateScreen() {
	cols, rows, err := draw.TerminalSize(c.termSizeFunc)
	if err != nil {
		return
	}
	if cols != c.canvas.Cols() || rows != c.canvas.Rows() {
		draw.ClearScreen(c.writer)
		c.canvas.Resize(cols, rows)
	}
}

// updateStartState leaves the title screen on SPACE or ENTER.
func (c *Client) updateStartState() {
	if c.state.Input.Has(input.KeyStrike) || c.state.Input.Has(input.KeyExpand) {
		c.state.GameState = GameStatePlaying
	}
}

// updatePlayingState moves the cursor and turns keys into commands.
func (c *Client) updatePlayingState(snapshot *server.WorldSnapshot) {
	candidates := targets(snapshot)
	cursor := snap(c.state.Cursor, candidates)
	for _, d := range c.state.Input.Moves() {
		cursor = step(cursor, d, candidates)
	}
	c.state.Cursor = cursor

	in := c.state.Input
	switch snapshot.Phase {
	case server.PhaseExpand:
		if in.Has(input.KeyExpand) {
			c.send(server.CmdExpand)
		}
	case server.PhaseDefend:
		if in.Has(input.KeyStrike) {
			c.send(server.CmdStrike)
		}
	case server.PhaseLost:
		if in.Has(input.KeyRestart) {
			c.send(server.CmdRestart)
		}
	}
}

func (c *Client) send(t server.CommandType) {
	c.server.SendCommand(server.Command{ClientID: c.handle.ID, Type: t, Pos: c.state.Cursor})
}

// updateShutdownState counts down to the forced disconnect.
func (c *Client) updateShutdownState() {
	c.state.shutdownTimer -= c.state.delta.Seconds()
	if c.state.shutdownTimer <= 0 {
		c.state.Running = false
	}
}
