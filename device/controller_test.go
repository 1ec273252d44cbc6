package device

import (
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/audio"
	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/persistence"
	"github.com/lixenwraith/airbladder/status"
)

// fakeBody records what the controller applies
type fakeBody struct {
	vy       float64
	mass     float64
	forces   []float64
	impulses []float64
}

func (b *fakeBody) PositionY() float64                 { return 0 }
func (b *fakeBody) VerticalVelocity() float64          { return b.vy }
func (b *fakeBody) Mass() float64                      { return b.mass }
func (b *fakeBody) ApplyUpwardForce(magnitude float64) { b.forces = append(b.forces, magnitude) }
func (b *fakeBody) ApplyImpulse(impulse float64)       { b.impulses = append(b.impulses, impulse) }

// panickyBody blows up when the controller pushes on it
type panickyBody struct{ fakeBody }

func (b *panickyBody) ApplyUpwardForce(float64) { panic("rigidbody gone") }

// fakePlayer counts intents; the recharge notification arrives from a timer goroutine
type fakePlayer struct {
	mu     sync.Mutex
	played map[audio.SoundType]int
	order  []audio.SoundType
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{played: make(map[audio.SoundType]int)}
}

func (p *fakePlayer) Play(st audio.SoundType) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played[st]++
	p.order = append(p.order, st)
	return true
}

func (p *fakePlayer) Stop(audio.SoundType) {}

func (p *fakePlayer) count(st audio.SoundType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played[st]
}

type fixture struct {
	ctrl    *Controller
	player  *fakePlayer
	store   *persistence.Store
	metrics *status.Registry
	id      host.ID
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, y float64, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		player:  newFakePlayer(),
		store:   persistence.NewStore(nil, quietLogger()),
		metrics: status.NewRegistry(),
		id:      host.NewID(),
	}
	opts := Options{
		ID:            f.id,
		InitialY:      y,
		Bladder:       config.Default().Bladder,
		Anchor:        config.AnchorConfig{RetryAttempts: 5, RetryInterval: 5 * time.Millisecond},
		Player:        f.player,
		Store:         f.store,
		Metrics:       f.metrics,
		Logger:        quietLogger(),
		RechargeDelay: 30 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.ctrl = New(opts)
	t.Cleanup(f.ctrl.Close)
	return f
}

// restored builds a controller whose store already holds remaining for its vehicle
func restored(t *testing.T, y, remaining float64, mutate ...func(*Options)) *fixture {
	seed := func(o *Options) { o.Store.Update(o.ID.String(), remaining) }
	return newFixture(t, y, append([]func(*Options){seed}, mutate...)...)
}

func TestNew_StartsFullOrRestored(t *testing.T) {
	fresh := newFixture(t, -10)
	assert.Equal(t, 100.0, fresh.ctrl.Remaining())
	assert.Equal(t, 100.0, fresh.ctrl.Capacity())
	assert.False(t, fresh.ctrl.Active())

	f := restored(t, -10, 37)
	assert.Equal(t, 37.0, f.ctrl.Remaining())

	over := restored(t, -10, 250)
	assert.Equal(t, 100.0, over.ctrl.Remaining(), "restored values are clamped to capacity")
}

func TestActivate_EmitsExactlyOneInflate(t *testing.T) {
	f := newFixture(t, -10)

	require.NoError(t, f.ctrl.Activate())
	assert.True(t, f.ctrl.Active())
	assert.Equal(t, 1, f.player.count(audio.SoundInflate))

	assert.ErrorIs(t, f.ctrl.Activate(), ErrCannotActivate)
	assert.True(t, f.ctrl.Active())
	assert.Equal(t, 1, f.player.count(audio.SoundInflate))
}

func TestActivate_RejectedAtOrAboveSurface(t *testing.T) {
	f := newFixture(t, 0)
	assert.ErrorIs(t, f.ctrl.Activate(), ErrCannotActivate)
	assert.False(t, f.ctrl.Active())

	f.ctrl.Tick(0.1, -3, &fakeBody{mass: 1000}, true)
	assert.NoError(t, f.ctrl.Activate(), "allowed once the last observed height is below the surface")
}

func TestActivate_RejectedWhenEmpty(t *testing.T) {
	f := restored(t, -10, 0)
	assert.ErrorIs(t, f.ctrl.Activate(), ErrCannotActivate)
	assert.Zero(t, f.player.count(audio.SoundInflate))
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t, -10)
	assert.ErrorIs(t, f.ctrl.Deactivate(), ErrAlreadyInactive)
	assert.Zero(t, f.player.count(audio.SoundDeflate))

	require.NoError(t, f.ctrl.Activate())
	require.NoError(t, f.ctrl.Deactivate())
	assert.False(t, f.ctrl.Active())
	assert.Equal(t, 1, f.player.count(audio.SoundDeflate))
}

func TestToggle(t *testing.T) {
	f := newFixture(t, -10)
	require.NoError(t, f.ctrl.Toggle())
	assert.True(t, f.ctrl.Active())
	require.NoError(t, f.ctrl.Toggle())
	assert.False(t, f.ctrl.Active())
	assert.Equal(t, []audio.SoundType{audio.SoundInflate, audio.SoundDeflate}, f.player.order)
}

func TestTick_DischargesAndPushes(t *testing.T) {
	f := newFixture(t, -10)
	body := &fakeBody{mass: 1000}
	require.NoError(t, f.ctrl.Activate())

	f.ctrl.Tick(1, -10, body, true)

	assert.InDelta(t, 90, f.ctrl.Remaining(), 1e-9)
	assert.True(t, f.ctrl.Active())
	assert.Equal(t, []float64{3500}, body.forces)
	assert.Empty(t, body.impulses)
}

func TestTick_ForceIsClamped(t *testing.T) {
	cases := []struct {
		name       string
		configured float64
		want       float64
	}{
		{"above max", 9000, 5000},
		{"below min", 100, 2000},
		{"in range", 4200, 4200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, -10, func(o *Options) { o.Bladder.BuoyancyForce = tc.configured })
			body := &fakeBody{mass: 1000}
			require.NoError(t, f.ctrl.Activate())
			f.ctrl.Tick(0.1, -10, body, true)
			assert.Equal(t, []float64{tc.want}, body.forces)
		})
	}
}

func TestTick_DepletionDeactivates(t *testing.T) {
	f := restored(t, -10, 5)
	body := &fakeBody{mass: 1000}
	require.NoError(t, f.ctrl.Activate())

	f.ctrl.Tick(1, -10, body, true)

	assert.Zero(t, f.ctrl.Remaining())
	assert.False(t, f.ctrl.Active())
	assert.Equal(t, 1, f.player.count(audio.SoundDeflate))
	assert.Empty(t, body.forces, "no lift on the depleting tick")

	f.ctrl.Tick(1, -10, body, true)
	assert.Equal(t, 1, f.player.count(audio.SoundDeflate))
}

func TestTick_SurfaceVent(t *testing.T) {
	f := newFixture(t, -10)
	body := &fakeBody{mass: 1000, vy: 3}
	require.NoError(t, f.ctrl.Activate())

	f.ctrl.Tick(0.1, 0.5, body, true)

	assert.False(t, f.ctrl.Active())
	require.Len(t, body.impulses, 1)
	assert.InDelta(t, -2400, body.impulses[0], 1e-9)
	assert.Empty(t, body.forces)
	assert.Equal(t, 1, f.player.count(audio.SoundDeflate))
}

func TestTick_SurfaceVentWithoutUpwardVelocity(t *testing.T) {
	f := newFixture(t, -10)
	body := &fakeBody{mass: 1000, vy: -1}
	require.NoError(t, f.ctrl.Activate())

	f.ctrl.Tick(0.1, 0, body, true)

	assert.False(t, f.ctrl.Active())
	assert.Empty(t, body.impulses)
}

func TestTick_RechargeSoundOnlyOnCrossing(t *testing.T) {
	f := restored(t, -2, 50)
	body := &fakeBody{mass: 1000}

	f.ctrl.Tick(0.1, 0, body, true)
	assert.Equal(t, 1, f.player.count(audio.SoundRecharge))
	assert.InDelta(t, 52.5, f.ctrl.Remaining(), 1e-9)
	assert.True(t, f.ctrl.Recharging())

	f.ctrl.Tick(0.1, 0, body, true)
	f.ctrl.Tick(0.1, -0.5, body, true)
	assert.Equal(t, 1, f.player.count(audio.SoundRecharge), "staying above the threshold is not a crossing")
	assert.InDelta(t, 57.5, f.ctrl.Remaining(), 1e-9)

	f.ctrl.Tick(0.1, -3, body, true)
	assert.False(t, f.ctrl.Recharging())
	f.ctrl.Tick(0.1, -1, body, true)
	assert.Equal(t, 2, f.player.count(audio.SoundRecharge), "threshold itself counts as above")
}

func TestTick_NoCrossingWhenSpawnedNearSurface(t *testing.T) {
	f := restored(t, 0, 50)
	f.ctrl.Tick(0.1, 0, &fakeBody{mass: 1000}, true)

	assert.Zero(t, f.player.count(audio.SoundRecharge))
	assert.InDelta(t, 52.5, f.ctrl.Remaining(), 1e-9)
}

func TestTick_NoRechargeSoundWhenFull(t *testing.T) {
	f := newFixture(t, -5)
	f.ctrl.Tick(0.1, 0, &fakeBody{mass: 1000}, true)
	assert.Zero(t, f.player.count(audio.SoundRecharge))
	assert.Equal(t, 100.0, f.ctrl.Remaining())
}

func TestTick_RechargeCapsAtCapacity(t *testing.T) {
	f := restored(t, 0, 99)
	f.ctrl.Tick(10, 0, &fakeBody{mass: 1000}, true)
	assert.Equal(t, 100.0, f.ctrl.Remaining())
}

func TestTick_RemainingStaysInBounds(t *testing.T) {
	f := restored(t, -3, 60)
	body := &fakeBody{mass: 1000}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		switch rng.Intn(6) {
		case 0:
			_ = f.ctrl.Activate()
		case 1:
			_ = f.ctrl.Deactivate()
		case 2:
			f.ctrl.ForceRechargeToFull()
		}
		body.vy = rng.Float64()*6 - 3
		f.ctrl.Tick(rng.Float64()*2, rng.Float64()*8-6, body, true)

		r := f.ctrl.Remaining()
		require.GreaterOrEqual(t, r, 0.0, "tick %d", i)
		require.LessOrEqual(t, r, f.ctrl.Capacity(), "tick %d", i)
	}
}

func TestTick_NegativeDeltaIsIgnored(t *testing.T) {
	f := newFixture(t, -10)
	require.NoError(t, f.ctrl.Activate())
	f.ctrl.Tick(-5, -10, &fakeBody{mass: 1000}, true)
	assert.Equal(t, 100.0, f.ctrl.Remaining())
}

func TestWatchdog(t *testing.T) {
	var terminated []host.ID
	f := newFixture(t, -10, func(o *Options) {
		o.OnTerminated = func(id host.ID) { terminated = append(terminated, id) }
	})
	body := &fakeBody{mass: 1000}

	for i := 0; i < 9; i++ {
		f.ctrl.Tick(0.1, -10, body, false)
	}
	assert.False(t, f.ctrl.Terminated(), "nine absent ticks are tolerated")
	assert.Empty(t, terminated)

	f.ctrl.Tick(0.1, -10, body, false)
	assert.True(t, f.ctrl.Terminated())
	assert.Equal(t, []host.ID{f.id}, terminated)

	f.ctrl.Tick(0.1, -10, body, false)
	f.ctrl.Tick(0.1, -10, body, true)
	assert.Len(t, terminated, 1, "termination is reported once")
	assert.ErrorIs(t, f.ctrl.Activate(), ErrTerminated)

	v, ok := f.store.Restore(f.id.String())
	require.True(t, ok, "air survives the device")
	assert.Equal(t, 100.0, v)
}

func TestWatchdog_PresenceResetsCounter(t *testing.T) {
	f := newFixture(t, -10)
	body := &fakeBody{mass: 1000}

	for i := 0; i < 9; i++ {
		f.ctrl.Tick(0.1, -10, body, false)
	}
	f.ctrl.Tick(0.1, -10, body, true)
	for i := 0; i < 9; i++ {
		f.ctrl.Tick(0.1, -10, body, false)
	}
	assert.False(t, f.ctrl.Terminated())
}

func TestTick_PanicIsContained(t *testing.T) {
	f := newFixture(t, -10)
	require.NoError(t, f.ctrl.Activate())

	assert.NotPanics(t, func() {
		f.ctrl.Tick(1, -10, &panickyBody{fakeBody{mass: 1000}}, true)
	})
	assert.Equal(t, int64(1), f.metrics.Ints.Get("device.tick_panics").Load())
	assert.Equal(t, 100.0, f.ctrl.Remaining(), "panicking tick leaves the reserve untouched")
	assert.True(t, f.ctrl.Air().Active)
	stored, ok := f.store.Restore(f.id.String())
	require.True(t, ok)
	assert.Equal(t, f.ctrl.Remaining(), stored, "store agrees with the live reserve")

	body := &fakeBody{mass: 1000}
	f.ctrl.Tick(0.1, -10, body, true)
	assert.Len(t, body.forces, 1, "controller keeps working after a contained panic")
}

func TestForceRechargeToFull_NotifiesAfterDelay(t *testing.T) {
	f := restored(t, -10, 40)

	f.ctrl.ForceRechargeToFull()
	assert.Equal(t, 100.0, f.ctrl.Remaining())
	assert.True(t, f.ctrl.RechargePending())
	assert.Zero(t, f.player.count(audio.SoundRecharge), "notification is deferred")

	assert.Eventually(t, func() bool {
		return f.player.count(audio.SoundRecharge) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, f.ctrl.RechargePending())
}

func TestForceRechargeToFull_WhenFullIsSilent(t *testing.T) {
	f := newFixture(t, -10)
	f.ctrl.ForceRechargeToFull()
	assert.False(t, f.ctrl.RechargePending())

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, f.player.count(audio.SoundRecharge))
}

func TestForceRechargeToFull_RepeatReplacesPending(t *testing.T) {
	f := restored(t, -10, 40, func(o *Options) { o.RechargeDelay = 60 * time.Millisecond })
	body := &fakeBody{mass: 1000}

	f.ctrl.ForceRechargeToFull()
	require.NoError(t, f.ctrl.Activate())
	f.ctrl.Tick(1, -10, body, true)
	f.ctrl.ForceRechargeToFull()

	assert.Eventually(t, func() bool {
		return f.player.count(audio.SoundRecharge) >= 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, f.player.count(audio.SoundRecharge))
}

func TestClose_CancelsPendingNotification(t *testing.T) {
	f := restored(t, -10, 40)
	f.ctrl.ForceRechargeToFull()
	f.ctrl.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, f.player.count(audio.SoundRecharge))
	v, ok := f.store.Restore(f.id.String())
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestTick_PublishesStoreAndMetrics(t *testing.T) {
	f := newFixture(t, -10)
	require.NoError(t, f.ctrl.Activate())
	f.ctrl.Tick(2, -10, &fakeBody{mass: 1000}, true)

	v, ok := f.store.Restore(f.id.String())
	require.True(t, ok)
	assert.InDelta(t, 80, v, 1e-9)

	assert.InDelta(t, 80, f.metrics.Floats.Get(metricKey(f.id, "remaining")).Get(), 1e-9)
	assert.True(t, f.metrics.Bools.Get(metricKey(f.id, "active")).Load())
	assert.False(t, f.metrics.Bools.Get(metricKey(f.id, "recharging")).Load())

	ratio, level := f.ctrl.Tracker().Fill()
	assert.InDelta(t, 0.8, ratio, 1e-9)
	assert.Equal(t, anchor.FillHigh, level)
}

func TestRecreatedControllerContinuesFromStore(t *testing.T) {
	f := newFixture(t, -10)
	require.NoError(t, f.ctrl.Activate())
	f.ctrl.Tick(3, -10, &fakeBody{mass: 1000}, true)
	f.ctrl.Close()

	again := New(Options{ID: f.id, InitialY: -10, Bladder: config.Default().Bladder, Store: f.store, Logger: quietLogger()})
	defer again.Close()
	assert.InDelta(t, 70, again.Remaining(), 1e-9)
	assert.False(t, again.Active(), "inflation is not persisted")
}

func TestPilotLifecycleAnchorsGauge(t *testing.T) {
	f := newFixture(t, -10)
	slots := []anchor.Slot{{ID: 0, Icon: "lamp"}, {ID: 3, Icon: ModuleIcon}}

	f.ctrl.OnPilotBegin(func() []anchor.Slot { return slots })
	assert.Eventually(t, f.ctrl.Tracker().IsSettled, time.Second, 2*time.Millisecond)
	assert.Equal(t, anchor.SlotID(3), f.ctrl.Tracker().State().Slot)

	moved := []anchor.Slot{{ID: 1, Icon: ModuleIcon}}
	f.ctrl.OnSlotChanged(func() []anchor.Slot { return moved })
	assert.Eventually(t, func() bool {
		st := f.ctrl.Tracker().State()
		return st.Attached && st.Slot == 1
	}, time.Second, 2*time.Millisecond)

	f.ctrl.OnPilotEnd()
	assert.False(t, f.ctrl.Tracker().State().Attached)
}

func TestMetricKeys(t *testing.T) {
	id := host.ID("abc")
	assert.Equal(t, []string{
		"device.abc.remaining",
		"device.abc.active",
		"device.abc.recharging",
	}, MetricKeys(id))
}
