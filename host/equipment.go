package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lixenwraith/airbladder/anchor"
)

var (
	// ErrAlreadyInstalled rejects a second copy of a unique module
	ErrAlreadyInstalled = errors.New("only one of this module can be installed per vehicle")
	ErrSlotOccupied     = errors.New("slot occupied")
	ErrSlotEmpty        = errors.New("slot empty")
	ErrNoSuchSlot       = errors.New("no such slot")
)

// Module is an equippable item
type Module struct {
	Name   string
	Icon   string
	Unique bool // at most one per vehicle
}

// Equipment is a fixed row of quickslots
type Equipment struct {
	mu       sync.RWMutex
	slots    []*Module
	onChange func()
}

// NewEquipment creates n empty slots
func NewEquipment(n int) *Equipment {
	return &Equipment{slots: make([]*Module, n)}
}

// OnChange registers a callback fired after every add, remove or move
// The callback runs without the equipment lock held
func (e *Equipment) OnChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Equipment) changed() {
	e.mu.RLock()
	fn := e.onChange
	e.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Len returns the slot count
func (e *Equipment) Len() int {
	return len(e.slots)
}

// IsInstalled reports whether a module with this name occupies any slot
func (e *Equipment) IsInstalled(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.indexOfLocked(name) >= 0
}

func (e *Equipment) indexOfLocked(name string) int {
	for i, m := range e.slots {
		if m != nil && m.Name == name {
			return i
		}
	}
	return -1
}

// Slots returns every slot with the icon it currently shows, in display order
func (e *Equipment) Slots() []anchor.Slot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]anchor.Slot, len(e.slots))
	for i, m := range e.slots {
		out[i] = anchor.Slot{ID: anchor.SlotID(i)}
		if m != nil {
			out[i].Icon = m.Icon
		}
	}
	return out
}

// At returns the module in slot, if any
func (e *Equipment) At(slot int) (Module, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if slot < 0 || slot >= len(e.slots) || e.slots[slot] == nil {
		return Module{}, false
	}
	return *e.slots[slot], true
}

// Add installs m into an empty slot
// A unique module already present anywhere on the vehicle is rejected
func (e *Equipment) Add(slot int, m Module) error {
	e.mu.Lock()
	if slot < 0 || slot >= len(e.slots) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSuchSlot, slot)
	}
	if m.Unique && e.indexOfLocked(m.Name) >= 0 {
		e.mu.Unlock()
		return ErrAlreadyInstalled
	}
	if e.slots[slot] != nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSlotOccupied, slot)
	}
	mod := m
	e.slots[slot] = &mod
	e.mu.Unlock()

	e.changed()
	return nil
}

// Remove clears slot and returns what was there
func (e *Equipment) Remove(slot int) (Module, error) {
	e.mu.Lock()
	if slot < 0 || slot >= len(e.slots) {
		e.mu.Unlock()
		return Module{}, fmt.Errorf("%w: %d", ErrNoSuchSlot, slot)
	}
	m := e.slots[slot]
	if m == nil {
		e.mu.Unlock()
		return Module{}, fmt.Errorf("%w: %d", ErrSlotEmpty, slot)
	}
	e.slots[slot] = nil
	e.mu.Unlock()

	e.changed()
	return *m, nil
}

// Move relocates a module between slots, swapping with any occupant
// Moving an installed unique module is not a second install
func (e *Equipment) Move(from, to int) error {
	e.mu.Lock()
	if from < 0 || from >= len(e.slots) || to < 0 || to >= len(e.slots) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d -> %d", ErrNoSuchSlot, from, to)
	}
	if e.slots[from] == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSlotEmpty, from)
	}
	if from == to {
		e.mu.Unlock()
		return nil
	}
	e.slots[from], e.slots[to] = e.slots[to], e.slots[from]
	e.mu.Unlock()

	e.changed()
	return nil
}
