package engine

import (
	"context"
	"errors"

	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/event"
	"github.com/lixenwraith/airbladder/host"
)

func (m *Manager) registerHandlers() {
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventPilotBegin, event.EventPilotEnd},
		Fn:    (*Manager).handlePilot,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventSlotChanged},
		Fn:    (*Manager).handleSlotChanged,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventDocked},
		Fn:    (*Manager).handleDocked,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventToggleRequest},
		Fn:    (*Manager).handleToggle,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventModuleAdded, event.EventModuleRemoved},
		Fn:    (*Manager).handleModule,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventSaveRequested},
		Fn:    (*Manager).handleSave,
	})
	m.router.Register(event.HandlerFunc[*Manager]{
		Types: []event.EventType{event.EventVehicleDestroyed},
		Fn:    (*Manager).handleDestroyed,
	})
}

// target resolves the vehicle and its device named by an event
func (m *Manager) target(ev event.HostEvent) (*host.Vehicle, *device.Controller, bool) {
	id, ok := event.VehicleOf(ev)
	if !ok {
		m.logger.Warn("event without vehicle", "event", ev.Type.String())
		return nil, nil, false
	}
	v, ok := m.Vehicle(id)
	if !ok {
		m.logger.Debug("event for unknown vehicle", "event", ev.Type.String(), "vehicle", id.String())
		return nil, nil, false
	}
	c, _ := m.Device(id)
	return v, c, true
}

func (m *Manager) handlePilot(ev event.HostEvent) {
	v, c, ok := m.target(ev)
	if !ok {
		return
	}
	begin := ev.Type == event.EventPilotBegin
	v.SetPiloted(begin)
	if c == nil {
		return
	}
	if begin {
		c.OnPilotBegin(v.Equipment().Slots)
	} else {
		c.OnPilotEnd()
	}
}

// handleSlotChanged re-anchors only while piloted; the gauge is hidden otherwise
func (m *Manager) handleSlotChanged(ev event.HostEvent) {
	v, c, ok := m.target(ev)
	if !ok || c == nil || !v.Piloted() {
		return
	}
	c.OnSlotChanged(v.Equipment().Slots)
}

func (m *Manager) handleDocked(ev event.HostEvent) {
	if _, c, ok := m.target(ev); ok && c != nil {
		c.ForceRechargeToFull()
	}
}

func (m *Manager) handleToggle(ev event.HostEvent) {
	_, c, ok := m.target(ev)
	if !ok || c == nil {
		return
	}
	// advisory rejections are logged by the device
	if err := c.Toggle(); err != nil && !errors.Is(err, device.ErrCannotActivate) && !errors.Is(err, device.ErrAlreadyInactive) {
		m.logger.Warn("toggle failed", "vehicle", c.ID(), "error", err)
	}
}

func (m *Manager) handleModule(ev event.HostEvent) {
	v, _, ok := m.target(ev)
	if !ok {
		return
	}
	if ev.Type == event.EventModuleRemoved {
		m.logger.Debug("air bladder module removed", "vehicle", v.ID().String())
		return
	}
	if _, err := m.Attach(v.ID()); err != nil {
		m.logger.Error("attaching air bladder failed", "error", err)
	}
}

func (m *Manager) handleSave(event.HostEvent) {
	if err := m.Save(context.Background()); err != nil {
		m.logger.Error("save failed", "error", err)
	}
}

func (m *Manager) handleDestroyed(ev event.HostEvent) {
	if id, ok := event.VehicleOf(ev); ok {
		m.DestroyVehicle(id)
	}
}
