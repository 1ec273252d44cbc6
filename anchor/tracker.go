package anchor

import (
	"log/slog"
	"sync"

	"github.com/lixenwraith/airbladder/component"
	"github.com/lixenwraith/airbladder/parameter"
)

// SlotID re-exports the component slot identifier
type SlotID = component.SlotID

// Slot is one candidate HUD slot and the icon currently shown in it
type Slot struct {
	ID   SlotID
	Icon string
}

// SlotSource returns the current candidate slots in display order
type SlotSource func() []Slot

// Status classifies a refresh result
type Status int

const (
	NotFound Status = iota
	Positioned
)

func (s Status) String() string {
	if s == Positioned {
		return "positioned"
	}
	return "not_found"
}

// Outcome is the result of RefreshPosition; Slot is meaningful only when Positioned
type Outcome struct {
	Status Status
	Slot   SlotID
}

// FillLevel is the gauge color band
type FillLevel int

const (
	FillHigh FillLevel = iota // green
	FillMid                   // yellow
	FillLow                   // red
)

// LevelFor maps a fill ratio to its color band
func LevelFor(ratio float64) FillLevel {
	switch {
	case ratio > parameter.GaugeHighThreshold:
		return FillHigh
	case ratio > parameter.GaugeLowThreshold:
		return FillMid
	default:
		return FillLow
	}
}

// Overlay is the visual the tracker moves between slots
// Attach resets the overlay's local transform under the new parent and leaves it visible
type Overlay interface {
	Attach(slot SlotID)
	Detach()
	Show()
	Hide()
	SetFill(ratio float64, level FillLevel)
}

// Tracker locates this device's slot among the candidates and keeps the overlay on it
// Safe for concurrent use; the retry goroutine and the tick path share it
type Tracker struct {
	mu      sync.Mutex
	icon    string
	overlay Overlay
	logger  *slog.Logger

	state component.AnchorComponent
	fill  float64
	level FillLevel

	attaches int
}

// NewTracker creates a detached tracker matching slots that show icon
// A nil overlay is replaced with a no-op
func NewTracker(icon string, overlay Overlay, logger *slog.Logger) *Tracker {
	if overlay == nil {
		overlay = nopOverlay{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		icon:    icon,
		overlay: overlay,
		logger:  logger.With("component", "anchor"),
		fill:    1,
		level:   FillHigh,
	}
}

// RefreshPosition scans slots for the device icon and moves the overlay accordingly
func (t *Tracker) RefreshPosition(slots []Slot) Outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, s := range slots {
		if s.Icon == t.icon {
			idx = i
			break
		}
	}

	if idx < 0 {
		t.detachLocked()
		return Outcome{Status: NotFound}
	}

	slot := slots[idx].ID
	current, ok := t.state.Current()
	switch {
	case !ok || current != slot:
		if t.state.Attached {
			t.overlay.Detach()
		}
		t.overlay.Attach(slot)
		t.overlay.SetFill(t.fill, t.level)
		t.state.Set(slot)
		t.attaches++
		t.logger.Debug("gauge attached", "slot", int(slot))
	case !t.state.Visible:
		t.overlay.Show()
		t.state.Visible = true
	}

	return Outcome{Status: Positioned, Slot: slot}
}

// IsSettled reports an attached, visible overlay at a known slot
func (t *Tracker) IsSettled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.HasSlot && t.state.Attached && t.state.Visible
}

// UpdateFill refreshes the gauge from the air reserve; no effect on device state
func (t *Tracker) UpdateFill(remaining, capacity float64) {
	ratio := 0.0
	if capacity > 0 {
		ratio = remaining / capacity
	}
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.fill = ratio
	t.level = LevelFor(ratio)
	if t.state.Attached {
		t.overlay.SetFill(t.fill, t.level)
	}
}

// Hide detaches the overlay whatever the slot match state
func (t *Tracker) Hide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detachLocked()
}

// Suspend hides the overlay but keeps it parented, so the next refresh at the same slot only re-shows it
func (t *Tracker) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Attached && t.state.Visible {
		t.overlay.Hide()
		t.state.Visible = false
	}
}

// State returns a copy of the anchor state
func (t *Tracker) State() component.AnchorComponent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Fill returns the last fill ratio and band
func (t *Tracker) Fill() (float64, FillLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fill, t.level
}

// Attaches counts slot changes since creation
func (t *Tracker) Attaches() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attaches
}

func (t *Tracker) detachLocked() {
	if !t.state.Attached {
		return
	}
	t.overlay.Detach()
	t.state.Clear()
	t.logger.Debug("gauge detached")
}

type nopOverlay struct{}

func (nopOverlay) Attach(SlotID)              {}
func (nopOverlay) Detach()                    {}
func (nopOverlay) Show()                      {}
func (nopOverlay) Hide()                      {}
func (nopOverlay) SetFill(float64, FillLevel) {}
