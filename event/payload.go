package event

import (
	"github.com/lixenwraith/airbladder/host"
)

// VehiclePayload names the vehicle an event concerns
type VehiclePayload struct {
	Vehicle host.ID
}

// ModulePayload names the vehicle and slot of an equipment change
type ModulePayload struct {
	Vehicle host.ID
	Slot    int
}

// VehicleOf extracts the vehicle id from either payload type
func VehicleOf(ev HostEvent) (host.ID, bool) {
	switch p := ev.Payload.(type) {
	case *VehiclePayload:
		if p != nil {
			return p.Vehicle, true
		}
	case *ModulePayload:
		if p != nil {
			return p.Vehicle, true
		}
	}
	return "", false
}
