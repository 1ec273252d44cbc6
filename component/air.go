package component

// AirComponent holds the bladder's air reserve and inflation state
// Invariant: 0 <= Remaining <= Capacity
type AirComponent struct {
	Capacity  float64
	Remaining float64
	Active    bool // Inflated, converting air into lift
}

// NewAirComponent creates a full, deflated reserve
func NewAirComponent(capacity float64) AirComponent {
	return AirComponent{Capacity: capacity, Remaining: capacity}
}

// Clamp restores the range invariant after arithmetic
func (a *AirComponent) Clamp() {
	if a.Remaining < 0 {
		a.Remaining = 0
	}
	if a.Remaining > a.Capacity {
		a.Remaining = a.Capacity
	}
}

// Ratio returns fill in [0, 1]
func (a AirComponent) Ratio() float64 {
	if a.Capacity <= 0 {
		return 0
	}
	r := a.Remaining / a.Capacity
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// Full reports whether the reserve is at capacity
func (a AirComponent) Full() bool {
	return a.Remaining >= a.Capacity
}

// Empty reports whether no air is left
func (a AirComponent) Empty() bool {
	return a.Remaining <= 0
}
