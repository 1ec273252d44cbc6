package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/event"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/parameter"
	"github.com/lixenwraith/airbladder/persistence"
)

const dt = 0.1

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Anchor.RetryAttempts = 5
	cfg.Anchor.RetryInterval = 5 * time.Millisecond
	return cfg
}

func newTestManager(t *testing.T, backend persistence.Backend) *Manager {
	t.Helper()
	m := NewManager(Options{
		Config: testConfig(),
		Store:  persistence.NewStore(backend, quietLogger()),
		Logger: quietLogger(),
	})
	t.Cleanup(m.Close)
	return m
}

// submerged adds a neutrally buoyant vehicle at y with the bladder fitted in slot
func submerged(t *testing.T, m *Manager, y float64, slot int) *host.Vehicle {
	t.Helper()
	v := host.NewVehicle("Seamoth", y)
	m.AddVehicle(v)
	require.NoError(t, m.Install(v.ID(), slot))
	m.Tick(0)
	return v
}

func TestManager_InstallAttachesDevice(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -20, 2)

	c, ok := m.Device(v.ID())
	require.True(t, ok)
	assert.Equal(t, 100.0, c.Remaining())
	assert.Len(t, m.Devices(), 1)
	assert.Equal(t, int64(1), m.Metrics().Ints.Get("engine.devices").Load())
}

func TestManager_SecondInstallRejected(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -20, 0)

	err := m.Install(v.ID(), 1)
	assert.ErrorIs(t, err, host.ErrAlreadyInstalled)
	assert.Error(t, m.Install(host.NewID(), 0))
}

func TestManager_ToggleDischargesAndLifts(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -20, 0)

	m.Queue().Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(dt)

	c, _ := m.Device(v.ID())
	assert.True(t, c.Active())
	assert.InDelta(t, 99, c.Remaining(), 1e-9)

	for i := 0; i < 10; i++ {
		m.Tick(dt)
	}
	assert.Greater(t, v.Y(), -20.0, "buoyancy lifts the hull")
}

func TestManager_SaveAndRecreate(t *testing.T) {
	ctx := context.Background()
	backend := persistence.NewMemoryBackend()

	m := newTestManager(t, backend)
	v := submerged(t, m, -50, 0)
	state := v.State()

	m.Queue().Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: v.ID()})
	for i := 0; i < 20; i++ {
		m.Tick(dt)
	}
	c, _ := m.Device(v.ID())
	remaining := c.Remaining()
	require.Less(t, remaining, 100.0)

	require.NoError(t, m.Save(ctx))
	m.Close()

	// new session: fresh store over the same backend, vehicle rebuilt from its saved state
	store := persistence.NewStore(backend, quietLogger())
	require.NoError(t, store.Load(ctx))
	again := NewManager(Options{Config: testConfig(), Store: store, Logger: quietLogger()})
	defer again.Close()

	rebuilt := host.FromState(state)
	require.NoError(t, rebuilt.Equipment().Add(0, device.Module))
	again.AddVehicle(rebuilt)

	restored, ok := again.Device(state.ID)
	require.True(t, ok)
	assert.InDelta(t, remaining, restored.Remaining(), 1e-9)
	assert.False(t, restored.Active())
}

func TestManager_WatchdogDetachKeepsAir(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -50, 3)

	m.Queue().Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(1)
	m.Queue().Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(0)
	require.NoError(t, m.Uninstall(v.ID(), 3))

	for i := 0; i < parameter.WatchdogTicks-1; i++ {
		m.Tick(dt)
	}
	_, ok := m.Device(v.ID())
	assert.True(t, ok, "device tolerates brief absence")

	m.Tick(dt)
	_, ok = m.Device(v.ID())
	assert.False(t, ok, "device detached after the watchdog expired")

	stored, ok := m.Store().Restore(v.ID().String())
	require.True(t, ok)
	assert.InDelta(t, 90, stored, 1e-9)

	require.NoError(t, m.Install(v.ID(), 5))
	m.Tick(0)
	c, ok := m.Device(v.ID())
	require.True(t, ok)
	assert.InDelta(t, 90, c.Remaining(), 1e-9, "reinstalled module resumes its air")
}

func TestManager_MoveModuleKeepsDevice(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -10, 0)
	before, _ := m.Device(v.ID())

	require.NoError(t, v.Equipment().Move(0, 4))
	for i := 0; i < 2*parameter.WatchdogTicks; i++ {
		m.Tick(dt)
	}

	after, ok := m.Device(v.ID())
	require.True(t, ok)
	assert.Same(t, before, after)
}

func TestManager_DockedRefills(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -50, 0)
	m.Detach(v.ID())
	m.Store().Update(v.ID().String(), 10)
	_, err := m.Attach(v.ID())
	require.NoError(t, err)

	m.Queue().Emit(event.EventDocked, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(0)

	c, _ := m.Device(v.ID())
	assert.Equal(t, 100.0, c.Remaining())
	assert.True(t, c.RechargePending())
}

func TestManager_PilotEventsDriveGauge(t *testing.T) {
	m := newTestManager(t, nil)
	v := submerged(t, m, -10, 6)
	c, _ := m.Device(v.ID())

	m.Queue().Emit(event.EventPilotBegin, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(0)
	assert.True(t, v.Piloted())
	assert.Eventually(t, c.Tracker().IsSettled, time.Second, 2*time.Millisecond)
	assert.Equal(t, anchor.SlotID(6), c.Tracker().State().Slot)

	require.NoError(t, v.Equipment().Move(6, 1))
	m.Tick(0)
	assert.Eventually(t, func() bool {
		st := c.Tracker().State()
		return st.Attached && st.Slot == 1
	}, time.Second, 2*time.Millisecond)

	m.Queue().Emit(event.EventPilotEnd, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(0)
	assert.False(t, v.Piloted())
	assert.False(t, c.Tracker().State().Attached)
}

func TestManager_SaveRequestedEventFlushes(t *testing.T) {
	backend := persistence.NewMemoryBackend()
	m := newTestManager(t, backend)
	submerged(t, m, -10, 0)

	m.Queue().Emit(event.EventSaveRequested, nil)
	m.Tick(0)

	data, err := backend.Load(context.Background(), persistence.DocumentKey)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[vehicles]")
}

func TestManager_DestroyKeepsAir(t *testing.T) {
	backend := persistence.NewMemoryBackend()
	m := newTestManager(t, backend)
	v := submerged(t, m, -10, 0)
	ctx := context.Background()
	require.NoError(t, m.Save(ctx))

	m.Queue().Emit(event.EventVehicleDestroyed, &event.VehiclePayload{Vehicle: v.ID()})
	m.Tick(0)

	_, ok := m.Vehicle(v.ID())
	assert.False(t, ok)
	assert.Empty(t, m.Devices())
	_, ok = m.Store().Restore(v.ID().String())
	assert.True(t, ok, "host destruction does not drop the record")

	require.NoError(t, m.Save(ctx))
	reloaded := persistence.NewStore(backend, quietLogger())
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Restore(v.ID().String())
	require.True(t, ok, "record survives a save after destruction")
	assert.Equal(t, 100.0, got)
}

func TestManager_ParallelTickKeepsBounds(t *testing.T) {
	m := NewManager(Options{Config: testConfig(), Logger: quietLogger(), Parallel: true})
	defer m.Close()

	var ids []host.ID
	for i := 0; i < 16; i++ {
		v := host.NewVehicle("hull", -float64(5+i))
		m.AddVehicle(v)
		require.NoError(t, m.Install(v.ID(), 0))
		ids = append(ids, v.ID())
	}
	m.Tick(0)
	for _, id := range ids {
		m.Queue().Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: id})
	}

	for i := 0; i < 200; i++ {
		m.Tick(dt)
	}
	require.Len(t, m.Devices(), 16)
	for _, c := range m.Devices() {
		assert.GreaterOrEqual(t, c.Remaining(), 0.0)
		assert.LessOrEqual(t, c.Remaining(), c.Capacity())
	}
	assert.Len(t, m.Vehicles(), 16)
}
