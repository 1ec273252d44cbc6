package physics

import "sync"

// Default medium parameters for the simulated hull
const (
	Gravity        = 9.81
	DefaultDrag    = 0.6 // linear drag coefficient, 1/s
	DefaultBallast = 0.0 // net vertical force at rest, N; zero is neutrally buoyant
)

// Body is a vertical-only rigid body
// Forces accumulate between Integrate calls and are cleared after each step
type Body struct {
	mu sync.Mutex

	mass     float64
	drag     float64
	ballast  float64
	y        float64
	vy       float64
	force    float64
	impulses float64
}

// NewBody creates a body of mass kg resting at height y
func NewBody(mass, y float64) *Body {
	return &Body{
		mass:    mass,
		drag:    DefaultDrag,
		ballast: DefaultBallast,
		y:       y,
	}
}

// SetDrag overrides the linear drag coefficient
func (b *Body) SetDrag(drag float64) {
	b.mu.Lock()
	b.drag = drag
	b.mu.Unlock()
}

// SetBallast sets the constant net vertical force; negative sinks the hull
func (b *Body) SetBallast(force float64) {
	b.mu.Lock()
	b.ballast = force
	b.mu.Unlock()
}

// PositionY returns the current height
func (b *Body) PositionY() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.y
}

// VerticalVelocity returns the current vertical speed, positive up
func (b *Body) VerticalVelocity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vy
}

// Mass returns the body mass in kg
func (b *Body) Mass() float64 {
	return b.mass
}

// ApplyUpwardForce accumulates a continuous force for the next step, in newtons
func (b *Body) ApplyUpwardForce(magnitude float64) {
	b.mu.Lock()
	b.force += magnitude
	b.mu.Unlock()
}

// ApplyImpulse accumulates an instantaneous momentum change, N·s, positive up
func (b *Body) ApplyImpulse(impulse float64) {
	b.mu.Lock()
	b.impulses += impulse
	b.mu.Unlock()
}

// Thrust sets vertical velocity directly, used by pilot input
func (b *Body) Thrust(vy float64) {
	b.mu.Lock()
	b.vy = vy
	b.mu.Unlock()
}

// Integrate advances the body by dt seconds using semi-implicit Euler
// Above the surface the hull falls back under gravity instead of floating
func (b *Body) Integrate(dt, surface float64) {
	if dt <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mass > 0 {
		b.vy += b.impulses / b.mass
	}
	b.impulses = 0

	accel := 0.0
	if b.mass > 0 {
		accel = (b.force + b.ballast) / b.mass
	}
	if b.y > surface {
		accel -= Gravity
	}
	accel -= b.drag * b.vy

	b.vy += accel * dt
	b.y += b.vy * dt
	b.force = 0
}
