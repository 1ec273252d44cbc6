package event

import (
	"time"
)

// EventType identifies a host event routed to devices
type EventType int

const (
	// EventPilotBegin signals a pilot boarding a vehicle
	// Consumer: device (shows gauge with retry) | Payload: *VehiclePayload
	EventPilotBegin EventType = iota

	// EventPilotEnd signals the pilot leaving
	// Consumer: device (hides gauge) | Payload: *VehiclePayload
	EventPilotEnd

	// EventSlotChanged signals the quickslot row changed contents or order
	// Consumer: device (re-anchors gauge) | Payload: *VehiclePayload
	EventSlotChanged

	// EventDocked signals the vehicle entered a dock
	// Consumer: device (forced refill) | Payload: *VehiclePayload
	EventDocked

	// EventSaveRequested signals the host is about to save
	// Consumer: manager (collect and flush) | Payload: nil
	EventSaveRequested

	// EventModuleAdded signals a bladder module installed on a vehicle
	// Consumer: manager (attach device) | Payload: *ModulePayload
	EventModuleAdded

	// EventModuleRemoved signals a bladder module taken off a vehicle
	// The device is not detached here; its watchdog expires instead
	// Payload: *ModulePayload
	EventModuleRemoved

	// EventToggleRequest signals the pilot pressing the bladder key
	// Consumer: device (Toggle) | Payload: *VehiclePayload
	EventToggleRequest

	// EventVehicleDestroyed signals permanent removal of a vehicle
	// Consumer: manager (detach, unregister; stored air kept) | Payload: *VehiclePayload
	EventVehicleDestroyed

	eventTypeCount
)

var eventNames = [eventTypeCount]string{
	"pilot_begin",
	"pilot_end",
	"slot_changed",
	"docked",
	"save_requested",
	"module_added",
	"module_removed",
	"toggle_request",
	"vehicle_destroyed",
}

func (t EventType) String() string {
	if t < 0 || t >= eventTypeCount {
		return "unknown"
	}
	return eventNames[t]
}

// HostEvent is one queued event
type HostEvent struct {
	Type      EventType
	Payload   any
	Timestamp time.Time
}
