package host

// Body is the rigid body the device pushes on
// Y axis points up; the water surface is at parameter.SurfaceLevel
type Body interface {
	PositionY() float64
	VerticalVelocity() float64
	Mass() float64
	ApplyUpwardForce(magnitude float64)
	ApplyImpulse(impulse float64) // signed, positive up
}
