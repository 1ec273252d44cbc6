package host

import (
	"sync/atomic"

	"github.com/lixenwraith/airbladder/parameter"
	"github.com/lixenwraith/airbladder/physics"
)

// Vehicle sizing for the simulator
const (
	DefaultMass      = 1200.0 // kg
	DefaultSlotCount = 8
)

// State is the vehicle's saved form
type State struct {
	ID      ID      `toml:"id"`
	Name    string  `toml:"name"`
	Y       float64 `toml:"y"`
	Mass    float64 `toml:"mass"`
	Ballast float64 `toml:"ballast"`
}

// Vehicle is a simulated submersible hull with equipment slots
type Vehicle struct {
	id        ID
	name      string
	body      *physics.Body
	ballast   float64
	equipment *Equipment
	piloted   atomic.Bool
}

// NewVehicle creates a vehicle with a fresh identity at height y
func NewVehicle(name string, y float64) *Vehicle {
	return FromState(State{ID: NewID(), Name: name, Y: y, Mass: DefaultMass})
}

// FromState recreates a saved vehicle; the identity carries over unchanged
func FromState(s State) *Vehicle {
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.Mass <= 0 {
		s.Mass = DefaultMass
	}
	body := physics.NewBody(s.Mass, s.Y)
	body.SetBallast(s.Ballast)
	return &Vehicle{
		id:        s.ID,
		name:      s.Name,
		body:      body,
		ballast:   s.Ballast,
		equipment: NewEquipment(DefaultSlotCount),
	}
}

// State captures the vehicle for saving
func (v *Vehicle) State() State {
	return State{
		ID:      v.id,
		Name:    v.name,
		Y:       v.body.PositionY(),
		Mass:    v.body.Mass(),
		Ballast: v.ballast,
	}
}

// ID returns the stable identity
func (v *Vehicle) ID() ID {
	return v.id
}

// Name returns the display name
func (v *Vehicle) Name() string {
	return v.name
}

// Body returns the rigid body devices act on
func (v *Vehicle) Body() Body {
	return v.body
}

// Equipment returns the quickslot row
func (v *Vehicle) Equipment() *Equipment {
	return v.equipment
}

// SetBallast sets the hull's net vertical force at rest; negative sinks
func (v *Vehicle) SetBallast(force float64) {
	v.ballast = force
	v.body.SetBallast(force)
}

// Thrust overrides vertical speed from pilot input
func (v *Vehicle) Thrust(vy float64) {
	v.body.Thrust(vy)
}

// Step integrates the hull by dt seconds
// Devices must have applied their forces for this frame already
func (v *Vehicle) Step(dt float64) {
	v.body.Integrate(dt, parameter.SurfaceLevel)
}

// Y returns the current height
func (v *Vehicle) Y() float64 {
	return v.body.PositionY()
}

// SetPiloted records whether a pilot is aboard
func (v *Vehicle) SetPiloted(on bool) {
	v.piloted.Store(on)
}

// Piloted reports whether a pilot is aboard
func (v *Vehicle) Piloted() bool {
	return v.piloted.Load()
}
