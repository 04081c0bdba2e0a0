// Package config centralizes all tunable game parameters.
package config

import "time"

// Board - the grid area the tree may grow into, centered on the base.
const (
	BoardRadiusX = 9 // Cells left and right of the base
	BoardRadiusY = 6 // Cells above and below the base
)

// Rendering - each grid cell is drawn as a block of terminal cells, with one
// column/row of it used for the edge toward the neighbor.
const (
	CellCols = 4 // Terminal columns per grid cell
	CellRows = 2 // Terminal rows per grid cell
	HUDRows  = 2 // Rows reserved above the board
)

// World space - node origins are spaced CellSpacing*2 apart.
const (
	CellSpacing   = 1.0
	ContactRadius = 0.5 // Agents closer than this merge
)

// Map generation
const (
	InitialExpansions = 2 // Random expansions made before the first wave
)

// Waves
const (
	WaveInterval  = 2 * time.Second        // Time between spawn batches
	WaveTarget    = 3                      // Batches per wave
	AgentStrength = 10.0                   // Strength of spawned agents
	AgentStepTime = 700 * time.Millisecond // Time to walk from one node to the next
)

// Defense
const (
	BaseHealth       = 100.0
	StrikeDamage     = 5.0
	StrikeCooldown   = 250 * time.Millisecond
	ScorePerStrength = 1 // Score per point of strength of a killed agent
)

// Player
const (
	MaxUsernameLength = 16 // Maximum display length for player usernames
)

// Client messages
const (
	MessageSeconds = 3.0 // How long status messages stay in the HUD
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 30
	ClientTargetFrameTime = time.Second / ClientTargetFPS
)

// Server tick rate
const (
	ServerTickRate = 60
	ServerTickTime = time.Second / ServerTickRate
)
