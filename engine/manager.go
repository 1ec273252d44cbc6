package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/event"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/persistence"
	"github.com/lixenwraith/airbladder/status"
)

// OverlayFactory supplies the gauge for a vehicle's device; nil overlays are allowed
type OverlayFactory func(id host.ID) anchor.Overlay

// Options configures a Manager
type Options struct {
	Config   *config.Config
	Store    *persistence.Store
	Player   device.Player
	Metrics  *status.Registry
	Overlays OverlayFactory
	Logger   *slog.Logger

	// Parallel ticks devices on separate goroutines
	Parallel bool
}

// Manager owns the simulated vehicles and their bladder devices
// Tick, event dispatch and Save must come from one goroutine; Queue producers may be anywhere
type Manager struct {
	mu       sync.RWMutex
	vehicles map[host.ID]*host.Vehicle
	devices  map[host.ID]*device.Controller

	cfg      *config.Config
	store    *persistence.Store
	player   device.Player
	metrics  *status.Registry
	overlays OverlayFactory
	parallel bool
	logger   *slog.Logger

	queue  *event.Queue
	router *event.Router[*Manager]

	pendingMu sync.Mutex
	pending   []host.ID // devices whose watchdog expired during the last tick

	ticks       *atomic.Int64
	deviceCount *atomic.Int64
}

// NewManager creates an empty manager
func NewManager(opts Options) *Manager {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = persistence.NewStore(nil, logger)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = status.NewRegistry()
	}

	queue := event.NewQueue()
	m := &Manager{
		vehicles:    make(map[host.ID]*host.Vehicle),
		devices:     make(map[host.ID]*device.Controller),
		cfg:         cfg,
		store:       store,
		player:      opts.Player,
		metrics:     metrics,
		overlays:    opts.Overlays,
		parallel:    opts.Parallel,
		logger:      logger.With("component", "engine"),
		queue:       queue,
		router:      event.NewRouter[*Manager](queue),
		ticks:       metrics.Ints.Get("engine.ticks"),
		deviceCount: metrics.Ints.Get("engine.devices"),
	}
	m.registerHandlers()
	return m
}

// Queue returns the event queue for input and host callbacks
func (m *Manager) Queue() *event.Queue {
	return m.queue
}

// Store returns the shared persistence store
func (m *Manager) Store() *persistence.Store {
	return m.store
}

// Metrics returns the metrics registry
func (m *Manager) Metrics() *status.Registry {
	return m.metrics
}

// AddVehicle registers a vehicle and attaches a device if the module is already fitted
func (m *Manager) AddVehicle(v *host.Vehicle) {
	id := v.ID()
	m.mu.Lock()
	m.vehicles[id] = v
	m.mu.Unlock()

	v.Equipment().OnChange(func() {
		m.queue.Emit(event.EventSlotChanged, &event.VehiclePayload{Vehicle: id})
	})

	if v.Equipment().IsInstalled(device.ModuleName) {
		m.Attach(id)
	}
}

// Vehicle returns a registered vehicle
func (m *Manager) Vehicle(id host.ID) (*host.Vehicle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	return v, ok
}

// Vehicles returns registered vehicles ordered by id
func (m *Manager) Vehicles() []*host.Vehicle {
	m.mu.RLock()
	out := make([]*host.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *host.Vehicle) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// Device returns the live device of a vehicle
func (m *Manager) Device(id host.ID) (*device.Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.devices[id]
	return c, ok
}

// Devices returns live devices ordered by vehicle id
func (m *Manager) Devices() []*device.Controller {
	m.mu.RLock()
	out := make([]*device.Controller, 0, len(m.devices))
	for _, c := range m.devices {
		out = append(out, c)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *device.Controller) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// Attach creates the device for a vehicle, restoring its air from the store
// An existing live device is returned unchanged
func (m *Manager) Attach(id host.ID) (*device.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("attach: unknown vehicle %s", id)
	}
	if c, ok := m.devices[id]; ok && !c.Terminated() {
		return c, nil
	}

	var overlay anchor.Overlay
	if m.overlays != nil {
		overlay = m.overlays(id)
	}

	c := device.New(device.Options{
		ID:           id,
		InitialY:     v.Y(),
		Bladder:      m.cfg.Bladder,
		Anchor:       m.cfg.Anchor,
		Player:       m.player,
		Store:        m.store,
		Overlay:      overlay,
		Metrics:      m.metrics,
		Logger:       m.logger,
		OnTerminated: m.markTerminated,
	})
	m.devices[id] = c
	m.deviceCount.Store(int64(len(m.devices)))

	if v.Piloted() {
		c.OnPilotBegin(v.Equipment().Slots)
	}
	m.logger.Info("air bladder attached", "vehicle", id.String(), "remaining", c.Remaining())
	return c, nil
}

// Detach closes a vehicle's device; its air stays in the store
func (m *Manager) Detach(id host.ID) {
	m.mu.Lock()
	c, ok := m.devices[id]
	delete(m.devices, id)
	m.deviceCount.Store(int64(len(m.devices)))
	m.mu.Unlock()

	if !ok {
		return
	}
	c.Close()
	m.metrics.Forget(device.MetricKeys(id)...)
	m.logger.Info("air bladder detached", "vehicle", id.String(), "remaining", c.Remaining())
}

// markTerminated runs inside a device tick; detaching waits for the tick to finish
func (m *Manager) markTerminated(id host.ID) {
	m.pendingMu.Lock()
	m.pending = append(m.pending, id)
	m.pendingMu.Unlock()
}

// Install fits the bladder module into a vehicle slot
func (m *Manager) Install(id host.ID, slot int) error {
	v, ok := m.Vehicle(id)
	if !ok {
		return fmt.Errorf("install: unknown vehicle %s", id)
	}
	if err := v.Equipment().Add(slot, device.Module); err != nil {
		return err
	}
	m.queue.Emit(event.EventModuleAdded, &event.ModulePayload{Vehicle: id, Slot: slot})
	return nil
}

// Uninstall takes the bladder module out of a slot
// The device survives until its watchdog notices the module is gone
func (m *Manager) Uninstall(id host.ID, slot int) error {
	v, ok := m.Vehicle(id)
	if !ok {
		return fmt.Errorf("uninstall: unknown vehicle %s", id)
	}
	mod, ok := v.Equipment().At(slot)
	if !ok || mod.Name != device.ModuleName {
		return fmt.Errorf("uninstall: slot %d holds no air bladder", slot)
	}
	if _, err := v.Equipment().Remove(slot); err != nil {
		return err
	}
	m.queue.Emit(event.EventModuleRemoved, &event.ModulePayload{Vehicle: id, Slot: slot})
	return nil
}

// Tick dispatches queued events, advances every device, then integrates the hulls
func (m *Manager) Tick(dt float64) {
	m.router.DispatchAll(m)

	type unit struct {
		v *host.Vehicle
		c *device.Controller
	}

	m.mu.RLock()
	units := make([]unit, 0, len(m.devices))
	for id, c := range m.devices {
		if v, ok := m.vehicles[id]; ok {
			units = append(units, unit{v, c})
		}
	}
	vehicles := make([]*host.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		vehicles = append(vehicles, v)
	}
	m.mu.RUnlock()

	step := func(u unit) {
		u.c.Tick(dt, u.v.Y(), u.v.Body(), u.v.Equipment().IsInstalled(device.ModuleName))
	}

	if m.parallel && len(units) > 1 {
		var wg sync.WaitGroup
		for _, u := range units {
			wg.Add(1)
			go func(u unit) {
				defer wg.Done()
				step(u)
			}(u)
		}
		wg.Wait()
	} else {
		for _, u := range units {
			step(u)
		}
	}

	for _, v := range vehicles {
		v.Step(dt)
	}

	m.pendingMu.Lock()
	expired := m.pending
	m.pending = nil
	m.pendingMu.Unlock()
	for _, id := range expired {
		m.Detach(id)
	}

	m.ticks.Add(1)
}

// Save captures every live device into the store and flushes it
// Records of detached devices are kept
func (m *Manager) Save(ctx context.Context) error {
	devices := m.Devices()
	live := make([]persistence.Reporter, 0, len(devices))
	for _, c := range devices {
		live = append(live, c)
	}
	if err := m.store.CollectAndFlush(ctx, live); err != nil {
		return fmt.Errorf("saving air state: %w", err)
	}
	m.logger.Info("air state saved", "devices", len(live), "records", m.store.Len())
	return nil
}

// DestroyVehicle detaches and unregisters a vehicle; its stored air is kept
func (m *Manager) DestroyVehicle(id host.ID) {
	m.Detach(id)
	m.mu.Lock()
	v, ok := m.vehicles[id]
	delete(m.vehicles, id)
	m.mu.Unlock()
	if ok {
		v.Equipment().OnChange(nil)
	}
}

// Close detaches every device
func (m *Manager) Close() {
	for _, c := range m.Devices() {
		m.Detach(c.VehicleID())
	}
}
