package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/persistence"
)

// fleetKey is the backend key of the saved vehicle roster, next to the air records
const fleetKey = "fleet"

type fleetDocument struct {
	Vehicles []fleetEntry `toml:"vehicle"`
}

type fleetEntry struct {
	State   host.State    `toml:"state"`
	Modules []fittedEntry `toml:"module"`
}

type fittedEntry struct {
	Slot   int    `toml:"slot"`
	Name   string `toml:"name"`
	Icon   string `toml:"icon"`
	Unique bool   `toml:"unique"`
}

// defaultFleet is the roster used when nothing was saved yet
func defaultFleet() []*host.Vehicle {
	nautilus := host.NewVehicle("Nautilus", -15)
	_ = nautilus.Equipment().Add(2, device.Module)
	_ = nautilus.Equipment().Add(0, host.Module{Name: "sonar", Icon: "sonar"})

	argo := host.NewVehicle("Argo", -4)
	_ = argo.Equipment().Add(1, host.Module{Name: "lamp", Icon: "lamp"})

	return []*host.Vehicle{nautilus, argo}
}

// bladderSlot returns the slot holding the bladder, -1 when none does
func bladderSlot(v *host.Vehicle) int {
	eq := v.Equipment()
	for i := 0; i < eq.Len(); i++ {
		if m, ok := eq.At(i); ok && m.Name == device.ModuleName {
			return i
		}
	}
	return -1
}

// saveFleet writes every vehicle's state and fitted modules under fleetKey
func saveFleet(ctx context.Context, backend persistence.Backend, vehicles []*host.Vehicle) error {
	doc := fleetDocument{Vehicles: make([]fleetEntry, 0, len(vehicles))}
	for _, v := range vehicles {
		entry := fleetEntry{State: v.State()}
		eq := v.Equipment()
		for i := 0; i < eq.Len(); i++ {
			if m, ok := eq.At(i); ok {
				entry.Modules = append(entry.Modules, fittedEntry{Slot: i, Name: m.Name, Icon: m.Icon, Unique: m.Unique})
			}
		}
		doc.Vehicles = append(doc.Vehicles, entry)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding fleet: %w", err)
	}
	if err := backend.Save(ctx, fleetKey, buf.Bytes()); err != nil {
		return fmt.Errorf("saving fleet: %w", err)
	}
	return nil
}

// loadFleet recreates the saved roster; a missing roster yields the default fleet
func loadFleet(ctx context.Context, backend persistence.Backend) ([]*host.Vehicle, error) {
	data, err := backend.Load(ctx, fleetKey)
	if errors.Is(err, persistence.ErrNotFound) {
		return defaultFleet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading fleet: %w", err)
	}

	var doc fleetDocument
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding fleet: %w", err)
	}
	if len(doc.Vehicles) == 0 {
		return defaultFleet(), nil
	}

	out := make([]*host.Vehicle, 0, len(doc.Vehicles))
	for _, e := range doc.Vehicles {
		if e.State.ID != "" {
			id, err := host.ParseID(e.State.ID.String())
			if err != nil {
				return nil, fmt.Errorf("loading fleet: %w", err)
			}
			e.State.ID = id
		}
		v := host.FromState(e.State)
		for _, m := range e.Modules {
			mod := host.Module{Name: m.Name, Icon: m.Icon, Unique: m.Unique}
			if err := v.Equipment().Add(m.Slot, mod); err != nil {
				return nil, fmt.Errorf("refitting %s slot %d: %w", v.Name(), m.Slot, err)
			}
		}
		out = append(out, v)
	}
	return out, nil
}
