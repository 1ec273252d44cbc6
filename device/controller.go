// Package device implements the air bladder controller: one per equipped vehicle.
package device

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/audio"
	"github.com/lixenwraith/airbladder/component"
	"github.com/lixenwraith/airbladder/config"
	"github.com/lixenwraith/airbladder/core"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/parameter"
	"github.com/lixenwraith/airbladder/persistence"
	"github.com/lixenwraith/airbladder/status"
)

// Advisory conditions; logged and returned, never fatal
var (
	ErrCannotActivate  = errors.New("cannot activate air bladder")
	ErrAlreadyInactive = errors.New("air bladder already inactive")
	ErrTerminated      = errors.New("air bladder removed")
)

// Player receives sound intents; fire-and-forget
type Player interface {
	Play(audio.SoundType) bool
	Stop(audio.SoundType)
}

// Options configures a Controller
type Options struct {
	ID       host.ID
	InitialY float64 // seeds the surface crossing detector
	Bladder  config.BladderConfig
	Anchor   config.AnchorConfig

	Player  Player
	Store   *persistence.Store
	Overlay anchor.Overlay
	Metrics *status.Registry
	Logger  *slog.Logger

	// OnTerminated runs once, outside the controller lock, when the watchdog expires
	OnTerminated func(id host.ID)

	// RechargeDelay overrides parameter.RechargeCompleteDelay when positive
	RechargeDelay time.Duration
}

// Controller owns one bladder's air reserve and drives the per-tick state machine
type Controller struct {
	mu sync.Mutex

	id    host.ID
	cfg   config.BladderConfig
	force float64

	air        component.AirComponent
	y          float64 // last observed height
	prevY      float64
	absent     int
	recharging bool

	terminated   atomic.Bool
	onTerminated func(host.ID)

	rechargeDelay time.Duration
	rechargeTimer *time.Timer
	rechargeSeq   uint64

	player  Player
	store   *persistence.Store
	tracker *anchor.Tracker
	retrier *anchor.Retrier
	logger  *slog.Logger

	metRemaining  *status.AtomicFloat
	metActive     *atomic.Bool
	metRecharging *atomic.Bool
	metPanics     *atomic.Int64
}

// New creates a controller, restoring air from the store when a record exists
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "device", "vehicle", opts.ID.String())

	cfg := opts.Bladder
	if cfg.Capacity <= 0 {
		cfg.Capacity = parameter.DefaultCapacity
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = status.NewRegistry()
	}

	delay := opts.RechargeDelay
	if delay <= 0 {
		delay = parameter.RechargeCompleteDelay
	}

	c := &Controller{
		id:            opts.ID,
		cfg:           cfg,
		force:         cfg.ClampedForce(),
		air:           component.NewAirComponent(cfg.Capacity),
		y:             opts.InitialY,
		prevY:         opts.InitialY,
		onTerminated:  opts.OnTerminated,
		rechargeDelay: delay,
		player:        opts.Player,
		store:         opts.Store,
		tracker:       anchor.NewTracker(ModuleIcon, opts.Overlay, logger),
		retrier:       anchor.NewRetrier(opts.Anchor.RetryAttempts, opts.Anchor.RetryInterval, logger),
		logger:        logger,
		metRemaining:  metrics.Floats.Get(metricKey(opts.ID, "remaining")),
		metActive:     metrics.Bools.Get(metricKey(opts.ID, "active")),
		metRecharging: metrics.Bools.Get(metricKey(opts.ID, "recharging")),
		metPanics:     metrics.Ints.Get("device.tick_panics"),
	}

	if c.store != nil {
		if v, ok := c.store.Restore(opts.ID.String()); ok {
			c.air.Remaining = v
			c.air.Clamp()
			logger.Debug("air restored", "remaining", c.air.Remaining)
		}
	}

	c.publishLocked()
	return c
}

// MetricKeys lists the per-device metric keys, for removal on detach
func MetricKeys(id host.ID) []string {
	return []string{metricKey(id, "remaining"), metricKey(id, "active"), metricKey(id, "recharging")}
}

func metricKey(id host.ID, name string) string {
	return fmt.Sprintf("device.%s.%s", id, name)
}

// Tick advances the state machine by dt seconds at height y
// A panic inside is recovered, logged and counted; the tick is then undone
func (c *Controller) Tick(dt, y float64, body host.Body, modulePresent bool) {
	if c.terminated.Load() {
		return
	}

	c.mu.Lock()
	terminate := c.tickLocked(dt, y, body, modulePresent)
	c.mu.Unlock()

	if terminate {
		c.finishTermination()
	}
}

func (c *Controller) tickLocked(dt, y float64, body host.Body, modulePresent bool) (terminate bool) {
	// A contained panic rolls the tick back
	air, prevY, lastY, absent, recharging := c.air, c.prevY, c.y, c.absent, c.recharging
	defer core.Contain(c.logger, "device_tick", func(any) {
		c.air, c.prevY, c.y, c.absent, c.recharging = air, prevY, lastY, absent, recharging
		c.metPanics.Add(1)
	})

	if math.IsNaN(dt) || dt < 0 {
		dt = 0
	}
	c.y = y

	// Watchdog
	if modulePresent {
		c.absent = 0
	} else {
		c.absent++
		if c.absent >= parameter.WatchdogTicks {
			c.terminated.Store(true)
			return true
		}
	}

	// Active physics
	if c.air.Active {
		if y >= parameter.SurfaceLevel {
			if body != nil {
				if vy := body.VerticalVelocity(); vy > 0 {
					body.ApplyImpulse(-vy * body.Mass() * parameter.SurfaceVentDamping)
				}
			}
			c.deactivateLocked("surfaced")
		} else {
			c.air.Remaining -= c.cfg.DischargeRate * dt
			if c.air.Remaining <= 0 {
				c.air.Remaining = 0
				c.deactivateLocked("depleted")
			} else if body != nil {
				body.ApplyUpwardForce(c.force)
			}
		}
	}

	// Recharge on surface crossing
	if y >= parameter.RechargeThreshold {
		c.recharging = true
		if c.prevY < parameter.RechargeThreshold && c.air.Remaining < c.air.Capacity {
			c.play(audio.SoundRecharge)
		}
		c.air.Remaining = math.Min(c.air.Remaining+c.cfg.RechargeRate*dt, c.air.Capacity)
	} else {
		c.recharging = false
	}
	c.prevY = y

	c.air.Clamp()
	c.publishLocked()
	return false
}

// publishLocked pushes the reserve to the gauge, the store and the metrics
func (c *Controller) publishLocked() {
	c.tracker.UpdateFill(c.air.Remaining, c.air.Capacity)
	if c.store != nil {
		c.store.Update(c.id.String(), c.air.Remaining)
	}
	c.metRemaining.Set(c.air.Remaining)
	c.metActive.Store(c.air.Active)
	c.metRecharging.Store(c.recharging)
}

// finishTermination stores the reserve, stops background work and notifies the owner
func (c *Controller) finishTermination() {
	c.logger.Info("air bladder module missing, device removed", "ticks", parameter.WatchdogTicks)
	c.shutdown()
	if c.onTerminated != nil {
		c.onTerminated(c.id)
	}
}

// Activate inflates the bladder
// Requires the host below the surface, air left and an inactive bladder
func (c *Controller) Activate() error {
	if c.terminated.Load() {
		return ErrTerminated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.y >= parameter.SurfaceLevel || c.air.Remaining <= 0 || c.air.Active {
		c.logger.Warn("cannot inflate air bladder",
			"active", c.air.Active, "remaining", c.air.Remaining, "y", c.y)
		return ErrCannotActivate
	}

	c.air.Active = true
	c.play(audio.SoundInflate)
	c.publishLocked()
	c.logger.Debug("air bladder inflated", "remaining", c.air.Remaining)
	return nil
}

// Deactivate deflates the bladder
func (c *Controller) Deactivate() error {
	if c.terminated.Load() {
		return ErrTerminated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.air.Active {
		c.logger.Warn("cannot deflate air bladder: already deflated")
		return ErrAlreadyInactive
	}
	c.deactivateLocked("requested")
	c.publishLocked()
	return nil
}

// Toggle inflates an inactive bladder and deflates an active one
func (c *Controller) Toggle() error {
	if c.Active() {
		return c.Deactivate()
	}
	return c.Activate()
}

func (c *Controller) deactivateLocked(reason string) {
	c.air.Active = false
	c.play(audio.SoundDeflate)
	c.logger.Debug("air bladder deflated", "reason", reason, "remaining", c.air.Remaining)
}

// ForceRechargeToFull fills the reserve at once (docking)
// When air was missing, one recharge notification follows after the completion delay;
// a repeat call replaces a pending notification
func (c *Controller) ForceRechargeToFull() {
	if c.terminated.Load() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	wasBelow := c.air.Remaining < c.air.Capacity
	c.air.Remaining = c.air.Capacity
	c.publishLocked()

	if !wasBelow {
		return
	}

	c.cancelRechargeLocked()
	c.rechargeSeq++
	seq := c.rechargeSeq
	c.rechargeTimer = time.AfterFunc(c.rechargeDelay, func() {
		c.mu.Lock()
		live := c.rechargeSeq == seq && c.rechargeTimer != nil
		if live {
			c.rechargeTimer = nil
		}
		c.mu.Unlock()
		if live {
			c.play(audio.SoundRecharge)
		}
	})
	c.logger.Debug("air bladder refilled", "notify_after", c.rechargeDelay)
}

// RechargePending reports a scheduled recharge notification
func (c *Controller) RechargePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rechargeTimer != nil
}

func (c *Controller) cancelRechargeLocked() {
	if c.rechargeTimer != nil {
		c.rechargeTimer.Stop()
		c.rechargeTimer = nil
	}
}

// play forwards a sound intent; failures stay inside the player
func (c *Controller) play(st audio.SoundType) {
	if c.player == nil {
		return
	}
	if !c.player.Play(st) {
		c.logger.Debug("sound intent produced no output", "sound", st.String())
	}
}

// OnPilotBegin shows the gauge once its slot can be found
func (c *Controller) OnPilotBegin(source anchor.SlotSource) {
	if c.terminated.Load() {
		return
	}
	c.retrier.Schedule(c.tracker, source)
}

// OnSlotChanged re-anchors the gauge after the slot row changed
func (c *Controller) OnSlotChanged(source anchor.SlotSource) {
	if c.terminated.Load() {
		return
	}
	c.retrier.Schedule(c.tracker, source)
}

// OnPilotEnd hides the gauge
func (c *Controller) OnPilotEnd() {
	c.retrier.Cancel()
	c.tracker.Hide()
}

// Close stops background work and writes the reserve to the store
// Safe to call more than once and after termination
func (c *Controller) Close() {
	c.shutdown()
}

func (c *Controller) shutdown() {
	c.retrier.Cancel()
	c.retrier.Wait()
	c.tracker.Hide()

	c.mu.Lock()
	c.cancelRechargeLocked()
	if c.store != nil {
		c.store.Update(c.id.String(), c.air.Remaining)
	}
	c.mu.Unlock()
}

// ID returns the owning vehicle's identity
func (c *Controller) ID() string {
	return c.id.String()
}

// VehicleID returns the owning vehicle's identity
func (c *Controller) VehicleID() host.ID {
	return c.id
}

// Remaining returns the air left
func (c *Controller) Remaining() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.air.Remaining
}

// Capacity returns the reserve size
func (c *Controller) Capacity() float64 {
	return c.cfg.Capacity
}

// Active reports whether the bladder is inflated
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.air.Active
}

// Recharging reports whether the last tick was near enough the surface to refill
func (c *Controller) Recharging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recharging
}

// Air returns a copy of the reserve
func (c *Controller) Air() component.AirComponent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.air
}

// Terminated reports watchdog expiry
func (c *Controller) Terminated() bool {
	return c.terminated.Load()
}

// Tracker exposes the gauge tracker for rendering
func (c *Controller) Tracker() *anchor.Tracker {
	return c.tracker
}
