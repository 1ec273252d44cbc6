package parameter

import "time"

// Simulation loop timing
const (
	// FrameUpdateInterval is the rendering frame rate interval (~60 FPS)
	FrameUpdateInterval = 16 * time.Millisecond

	// TickInterval is the fixed physics and device step
	TickInterval = 20 * time.Millisecond

	// MaxTickDelta caps dt after a stall so one frame cannot drain the bladder
	MaxTickDelta = 250 * time.Millisecond
)

// Event queue limits
const (
	// EventQueueSize is the fixed capacity of the event ring buffer
	EventQueueSize = 256

	// EventBufferMask is the bitmask for fast modulo operations (256 - 1)
	EventBufferMask = 255
)

// Log file rotation
const (
	LogDir     = "logs"
	MaxLogSize = 10 * 1024 * 1024
)
