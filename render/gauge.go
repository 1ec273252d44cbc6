package render

import (
	"sync"

	"github.com/lixenwraith/airbladder/anchor"
)

// GaugeState is a point-in-time copy of the gauge
type GaugeState struct {
	Slot     anchor.SlotID
	Attached bool
	Visible  bool
	Ratio    float64
	Level    anchor.FillLevel
}

// Gauge is the air gauge overlay drawn over the bladder's slot
// Implements anchor.Overlay; the tracker and the draw loop share it
type Gauge struct {
	mu    sync.Mutex
	state GaugeState
}

// NewGauge creates a hidden, detached, full gauge
func NewGauge() *Gauge {
	return &Gauge{state: GaugeState{Ratio: 1, Level: anchor.FillHigh}}
}

// Attach parents the gauge under slot and shows it
func (g *Gauge) Attach(slot anchor.SlotID) {
	g.mu.Lock()
	g.state.Slot = slot
	g.state.Attached = true
	g.state.Visible = true
	g.mu.Unlock()
}

// Detach unparents and hides the gauge
func (g *Gauge) Detach() {
	g.mu.Lock()
	g.state = GaugeState{Ratio: g.state.Ratio, Level: g.state.Level}
	g.mu.Unlock()
}

func (g *Gauge) Show() {
	g.mu.Lock()
	g.state.Visible = true
	g.mu.Unlock()
}

func (g *Gauge) Hide() {
	g.mu.Lock()
	g.state.Visible = false
	g.mu.Unlock()
}

// SetFill updates the bar length and color band
func (g *Gauge) SetFill(ratio float64, level anchor.FillLevel) {
	g.mu.Lock()
	g.state.Ratio = ratio
	g.state.Level = level
	g.mu.Unlock()
}

// State returns a copy of the current gauge state
func (g *Gauge) State() GaugeState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Drawable reports whether the gauge should be painted this frame
func (s GaugeState) Drawable() bool {
	return s.Attached && s.Visible
}
