package component

// SlotID identifies a candidate UI slot (quickslot index in the host HUD)
type SlotID int

// AnchorComponent tracks where the gauge overlay currently lives
// Invariant: Attached == HasSlot
type AnchorComponent struct {
	Slot     SlotID
	HasSlot  bool
	Attached bool
	Visible  bool
}

// Set records attachment at slot
func (a *AnchorComponent) Set(slot SlotID) {
	a.Slot = slot
	a.HasSlot = true
	a.Attached = true
	a.Visible = true
}

// Clear records detachment
func (a *AnchorComponent) Clear() {
	*a = AnchorComponent{}
}

// Current returns the slot and whether one is set
func (a AnchorComponent) Current() (SlotID, bool) {
	return a.Slot, a.HasSlot
}
