package parameter

import "time"

// Surface geometry, Y axis points up
const (
	// SurfaceLevel is the water surface height
	SurfaceLevel = 0.0

	// NearSurfaceThreshold is the depth below SurfaceLevel at which recharge begins
	NearSurfaceThreshold = 1.0

	// RechargeThreshold is the height at/above which the bladder refills
	RechargeThreshold = SurfaceLevel - NearSurfaceThreshold
)

// Bladder defaults, overridable through config
const (
	DefaultCapacity      = 100.0
	DefaultDischargeRate = 10.0 // air units per second while inflated
	DefaultRechargeRate  = 25.0 // air units per second near the surface
	DefaultBuoyancyForce = 3500.0
)

// Buoyancy force bounds, applied at use
const (
	MinBuoyancyForce = 2000.0
	MaxBuoyancyForce = 5000.0
)

// SurfaceVentDamping scales the counter-impulse applied when an inflated bladder breaches the surface
const SurfaceVentDamping = 0.8

// WatchdogTicks is the number of consecutive ticks without the module installed before the device terminates
const WatchdogTicks = 10

// RechargeCompleteDelay separates a forced (docked) refill from its completion notification
const RechargeCompleteDelay = 1500 * time.Millisecond

// Anchor retry bounds
const (
	AnchorRetryAttempts = 20
	AnchorRetryInterval = 100 * time.Millisecond
)

// Gauge color bands, fill ratio thresholds
const (
	GaugeHighThreshold = 0.5
	GaugeLowThreshold  = 0.25
)
